package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/mockapi"
	"grimm.is/rulestage/internal/rules"
)

// captureStdout redirects command output for the duration of a test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Stdout
	Stdout = &buf
	t.Cleanup(func() { Stdout = prev })
	return &buf
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newBackend starts a development API and returns flags pointing at it.
func newBackend(t *testing.T) (*mockapi.Server, []string) {
	t.Helper()
	s := mockapi.New(mockapi.Options{Logger: logging.Discard()})
	s.SeedSamples()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	cfg := writeTemp(t, "rulestage.hcl", `
settle_delay = "10ms"
log {
  level = "error"
}
`)
	return s, []string{"--config", cfg, "--remote", srv.URL}
}

func TestRunCategories(t *testing.T) {
	out := captureStdout(t)
	require.NoError(t, RunCategories())

	text := out.String()
	for _, cat := range rules.All() {
		assert.Contains(t, text, rules.MustLookup(cat).Path)
	}
	assert.Contains(t, text, "sourceIP*")
}

func TestRunCheck_ValidConfig(t *testing.T) {
	out := captureStdout(t)
	path := writeTemp(t, "valid.hcl", `
api {
  url = "http://192.168.1.1:5000"
}
category "qos" {
  settle_delay = "500ms"
}
`)
	require.NoError(t, RunCheck([]string{path}))
	assert.Contains(t, out.String(), "Configuration valid!")
	assert.Contains(t, out.String(), "500ms")
}

func TestRunCheck_InvalidConfig(t *testing.T) {
	captureStdout(t)
	path := writeTemp(t, "invalid.hcl", `
api {
    # Missing closing brace
`)
	if err := RunCheck([]string{path}); err == nil {
		t.Error("RunCheck() error = nil, want error")
	}
}

func TestRunCheck_RulesFile(t *testing.T) {
	out := captureStdout(t)
	good := writeTemp(t, "dns.yaml", "category: dns\nrules:\n  - domainOrURL: google.com\n")
	require.NoError(t, RunCheck([]string{good}))
	assert.Contains(t, out.String(), "is valid")

	out.Reset()
	bad := writeTemp(t, "ports.hcl", `
rule {
  protocol  = "TCP"
  portRange = "100-99999"
}
rule {
  protocol = "UDP"
}
`)
	err := RunCheck([]string{"--category", "portblocking", bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 rule(s) invalid")
	assert.Contains(t, out.String(), "rule 1: portRange")
	assert.Contains(t, out.String(), "rule 2: missing Port range")
}

func TestRunList(t *testing.T) {
	_, flags := newBackend(t)
	out := captureStdout(t)

	require.NoError(t, RunList(context.Background(), append(flags, "traffic")))
	assert.Contains(t, out.String(), "cfg01a2")
	assert.Contains(t, out.String(), "192.168.1.0/24")
	assert.Contains(t, out.String(), "2 active rule(s)")

	out.Reset()
	require.NoError(t, RunList(context.Background(), append(flags, "--json", "qos")))
	assert.Contains(t, out.String(), `"classId": "1:10"`)
}

func TestRunList_UnknownCategory(t *testing.T) {
	err := RunList(context.Background(), []string{"bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "categories")
}

func TestRunAdd(t *testing.T) {
	s, flags := newBackend(t)
	out := captureStdout(t)

	args := append(flags, "dns", "domainOrURL=google.com")
	require.NoError(t, RunAdd(context.Background(), args))
	assert.Contains(t, out.String(), "Submitted 1 rule(s) to dns")
	assert.Len(t, s.Keys(rules.DNS), 3)

	err := RunAdd(context.Background(), append(flags, "dns", "domainOrURL=not a domain"))
	require.Error(t, err)
	assert.Len(t, s.Keys(rules.DNS), 3)

	err = RunAdd(context.Background(), append(flags, "dns", "nonsense"))
	assert.ErrorContains(t, err, "field=value")
}

func TestRunApply(t *testing.T) {
	s, flags := newBackend(t)
	out := captureStdout(t)
	file := writeTemp(t, "dns.hcl", `
category = "dns"
rule {
  domainOrURL = "bad.example.org"
}
rule {
  domainOrURL = "tracker.example.com"
}
`)

	require.NoError(t, RunApply(context.Background(), append(flags, "--dry-run", file)))
	assert.Contains(t, out.String(), "Staged 2 rule(s) for dns")
	assert.Contains(t, out.String(), "Dry run")
	assert.Len(t, s.Keys(rules.DNS), 2)

	out.Reset()
	require.NoError(t, RunApply(context.Background(), append(flags, file)))
	text := out.String()
	assert.Contains(t, text, "Submitted 2 rule(s) to dns")
	assert.Contains(t, text, "+++ active (after)")
	assert.Contains(t, text, "bad.example.org")
	assert.Len(t, s.Keys(rules.DNS), 4)
}

func TestRunApply_CategoryMismatch(t *testing.T) {
	_, flags := newBackend(t)
	captureStdout(t)
	file := writeTemp(t, "dns.json", `{"category":"dns","rules":[{"domainOrURL":"a.example.com"}]}`)

	err := RunApply(context.Background(), append(flags, "qos", file))
	assert.ErrorContains(t, err, "not qos")
}

func TestRunDelete(t *testing.T) {
	s, flags := newBackend(t)
	out := captureStdout(t)

	require.NoError(t, RunDelete(context.Background(), append(flags, "traffic", "cfg01a2")))
	assert.Contains(t, out.String(), "Deleted cfg01a2 from traffic")
	assert.NotContains(t, s.Keys(rules.Traffic), "cfg01a2")

	err := RunDelete(context.Background(), append(flags, "traffic", "cfg01a2"))
	assert.Error(t, err, "no longer in the active list")
}

func TestRunConfig(t *testing.T) {
	out := captureStdout(t)
	path := filepath.Join(t.TempDir(), "rulestage.hcl")

	require.NoError(t, RunConfig([]string{"init", "--remote", "http://10.0.0.1:5000", path}))
	assert.Contains(t, out.String(), path)
	assert.Error(t, RunConfig([]string{"init", path}), "refuses to overwrite")

	out.Reset()
	require.NoError(t, RunConfig([]string{"show", "--config", path, "--api-key", "secret"}))
	text := out.String()
	assert.Contains(t, text, "http://10.0.0.1:5000")
	assert.NotContains(t, text, "secret")

	out.Reset()
	require.NoError(t, RunConfig([]string{"show", "--config", path, "-o", "json"}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.String()), "{"))

	assert.Error(t, RunConfig([]string{"frobnicate"}))
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"a=1", "b=x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": ""}, got)

	_, err = parsePairs([]string{"=1"})
	assert.Error(t, err)
}

// slowRouter answers list calls after a delay, with whatever it holds.
type slowRouter struct {
	mu    sync.Mutex
	delay time.Duration
	list  []map[string]any
}

func (r *slowRouter) ListRules(ctx context.Context, path string) ([]map[string]any, error) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.list...), nil
}

func (r *slowRouter) CreateRules(ctx context.Context, path string, records []map[string]any) (*client.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for range records {
		r.list = append(r.list, map[string]any{"uciKey": "cfg" + string(rune('a'+len(r.list)))})
	}
	return &client.BatchResult{Accepted: true}, nil
}

func (r *slowRouter) DeleteRule(ctx context.Context, path, key string) (*client.DeleteResult, error) {
	return &client.DeleteResult{Success: true}, nil
}

func TestAwaitRefresh_WaitsForSlowList(t *testing.T) {
	router := &slowRouter{delay: 100 * time.Millisecond, list: []map[string]any{{"uciKey": "cfga"}}}
	desc := rules.MustLookup(rules.DNS)
	desc.SettleDelay = 0
	ctl := console.NewController(desc, router, console.Options{Logger: logging.Discard()})
	defer ctl.Close()

	ctx := context.Background()
	require.NoError(t, ctl.RefreshActive(ctx))
	require.Len(t, ctl.Snapshot().Active, 1)

	_, err := ctl.Stage(map[string]string{"domainOrURL": "ads.example.com"})
	require.NoError(t, err)
	require.NoError(t, ctl.Submit(ctx))

	require.NoError(t, awaitRefresh(ctx, ctl, 5*time.Second))
	assert.Len(t, ctl.Snapshot().Active, 2)
}
