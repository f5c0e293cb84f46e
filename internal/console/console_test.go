package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rulestage/internal/clock"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/rules"
)

type fakeWatcher struct {
	paths []string
}

func (w *fakeWatcher) WatchRules(ctx context.Context, onChange func(path string)) error {
	for _, p := range w.paths {
		onChange(p)
	}
	return errors.New("connection closed")
}

func newTestConsole(ft *fakeTransport, delays map[rules.Category]time.Duration) (*Console, *clock.MockClock) {
	mc := clock.NewMockClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	return New(ft, Options{Clock: mc, Logger: logging.Discard()}, delays), mc
}

func TestConsole_Controllers(t *testing.T) {
	c, _ := newTestConsole(newFakeTransport(), map[rules.Category]time.Duration{rules.QoS: 500 * time.Millisecond})
	defer c.Close()

	assert.Equal(t, rules.All(), c.Categories())
	for _, cat := range rules.All() {
		ctl, err := c.Controller(cat)
		require.NoError(t, err)
		assert.Equal(t, cat, ctl.Category())
	}

	qos, _ := c.Controller(rules.QoS)
	assert.Equal(t, 500*time.Millisecond, qos.Descriptor().SettleDelay)
	dns, _ := c.Controller(rules.DNS)
	assert.Equal(t, rules.DefaultSettleDelay, dns.Descriptor().SettleDelay)

	_, err := c.Controller("wifi")
	assert.Error(t, err)
}

func TestConsole_PerCategoryDelay(t *testing.T) {
	ft := newFakeTransport()
	ft.setList("/api/qos/rules", map[string]any{"mark": "0x10"})
	c, mc := newTestConsole(ft, map[rules.Category]time.Duration{rules.QoS: 500 * time.Millisecond})
	defer c.Close()

	qos, _ := c.Controller(rules.QoS)
	require.NoError(t, qos.SetField("macAddress", "aa:bb:cc:dd:ee:ff"))
	_, err := qos.AddRule()
	require.NoError(t, err)
	require.NoError(t, qos.Submit(context.Background()))

	mc.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"0x10"}, keys(qos.Snapshot()))
}

func TestConsole_RefreshAll(t *testing.T) {
	ft := newFakeTransport()
	ft.setList("/api/firewall/rules", map[string]any{"uciKey": "cfg01"})
	ft.setList("/api/qos/rules", map[string]any{"mark": "0x10"})
	c, _ := newTestConsole(ft, nil)
	defer c.Close()

	require.NoError(t, c.RefreshAll(context.Background()))
	list, _, _ := ft.calls()
	assert.Equal(t, len(rules.All()), list)

	traffic, _ := c.Controller(rules.Traffic)
	assert.Equal(t, []string{"cfg01"}, keys(traffic.Snapshot()))

	ft.mu.Lock()
	ft.listErr = errors.New("down")
	ft.mu.Unlock()
	err := c.RefreshAll(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "traffic")
	assert.ErrorContains(t, err, "vpn-nat")
}

func TestConsole_PushNotifications(t *testing.T) {
	ft := newFakeTransport()
	ft.setList("/api/dnsblocking/rules", map[string]any{"uciKey": "cfg07"})
	c, _ := newTestConsole(ft, nil)
	defer c.Close()

	var mu sync.Mutex
	var changed []rules.Category
	c.SetOnChange(func(cat rules.Category) {
		mu.Lock()
		changed = append(changed, cat)
		mu.Unlock()
	})

	w := &fakeWatcher{paths: []string{"/api/dnsblocking/rules", "/api/unknown"}}
	err := c.Watch(context.Background(), w)
	assert.Error(t, err)

	dns, _ := c.Controller(rules.DNS)
	assert.Equal(t, []string{"cfg07"}, keys(dns.Snapshot()))
	assert.Equal(t, []rules.Category{rules.DNS}, changed)
	list, _, _ := ft.calls()
	assert.Equal(t, 1, list, "unknown paths are ignored")
}

func TestConsole_PendingDrafts(t *testing.T) {
	c, _ := newTestConsole(newFakeTransport(), nil)
	defer c.Close()

	dns, _ := c.Controller(rules.DNS)
	require.NoError(t, dns.SetField("domainOrURL", "a.com"))
	_, err := dns.AddRule()
	require.NoError(t, err)

	p := c.PendingDrafts()
	assert.Equal(t, 1, p[rules.DNS])
	assert.Equal(t, 0, p[rules.Traffic])
}
