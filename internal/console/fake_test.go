package console

import (
	"context"
	"sync"
	"time"

	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/clock"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/rules"
)

// fakeTransport is an in-memory router. Every field is guarded by mu.
type fakeTransport struct {
	mu sync.Mutex

	lists     map[string][]map[string]any
	listErr   error
	listGate  chan struct{} // when set, ListRules blocks until it receives
	listCalls int

	createRes  *client.BatchResult
	createErr  error
	createGate chan struct{}
	created    [][]map[string]any

	deleteRes *client.DeleteResult
	deleteErr error
	deleted   []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{lists: make(map[string][]map[string]any)}
}

func (f *fakeTransport) ListRules(ctx context.Context, path string) ([]map[string]any, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]map[string]any(nil), f.lists[path]...), nil
}

func (f *fakeTransport) CreateRules(ctx context.Context, path string, records []map[string]any) (*client.BatchResult, error) {
	f.mu.Lock()
	gate := f.createGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, records)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createRes != nil {
		return f.createRes, nil
	}
	return &client.BatchResult{Accepted: true}, nil
}

func (f *fakeTransport) DeleteRule(ctx context.Context, path, key string) (*client.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if f.deleteRes != nil {
		return f.deleteRes, nil
	}
	return &client.DeleteResult{Success: true}, nil
}

func (f *fakeTransport) setList(path string, list ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[path] = list
}

func (f *fakeTransport) calls() (list, create, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, len(f.created), len(f.deleted)
}

func newTestController(cat rules.Category, ft *fakeTransport) (*Controller, *clock.MockClock) {
	mc := clock.NewMockClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	ctl := NewController(rules.MustLookup(cat), ft, Options{
		Clock:  mc,
		Logger: logging.Discard(),
	})
	return ctl, mc
}

func keys(st State) []string {
	out := make([]string, len(st.Active))
	for i, r := range st.Active {
		out[i] = r.Key
	}
	return out
}
