package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rulestage/internal/metrics"
	"grimm.is/rulestage/internal/rules"
)

func jsonServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_ListRules(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr bool
	}{
		{"bare array", 200, `[{"uciKey":"cfg01","src_ip":"10.0.0.1"},{"uciKey":"cfg02"}]`, 2, false},
		{"wrapped", 200, `{"rules":[{"uciKey":"cfg01"}]}`, 1, false},
		{"empty array", 200, `[]`, 0, false},
		{"non object entries skipped", 200, `[{"uciKey":"cfg01"},"junk",3]`, 1, false},
		{"server error", 500, `{"error":"uci commit failed"}`, 0, true},
		{"not json", 200, `<html>oops</html>`, 0, true},
		{"object without rules", 200, `{"count":3}`, 0, true},
		{"error body with 200", 200, `{"error":"not ready"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body, func(r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/firewall/rules", r.URL.Path)
			})

			got, err := NewHTTPClient(srv.URL).ListRules(context.Background(), "/api/firewall/rules")
			if tt.wantErr {
				var te *TransportError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, "list", te.Op)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestHTTPClient_ListRulesDecodesValues(t *testing.T) {
	srv := jsonServer(t, 200, `[{"mark":"0x10","mac":"aa:bb:cc:dd:ee:ff","port":443,"list":["a","b"]}]`, nil)

	got, err := NewHTTPClient(srv.URL).ListRules(context.Background(), "/api/qos/rules")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0x10", got[0]["mark"])
	assert.Equal(t, float64(443), got[0]["port"])
	assert.Equal(t, []any{"a", "b"}, got[0]["list"])
}

func TestHTTPClient_Headers(t *testing.T) {
	var seen http.Header
	srv := jsonServer(t, 200, `[]`, func(r *http.Request) { seen = r.Header.Clone() })

	c := NewHTTPClient(srv.URL+"/", WithAPIKey("test-key"))
	_, err := c.ListRules(context.Background(), "/api/dnsblocking/rules")
	require.NoError(t, err)

	assert.Equal(t, "test-key", seen.Get("X-API-Key"))
	assert.Equal(t, "application/json", seen.Get("Accept"))
	assert.Len(t, seen.Get("X-Request-ID"), 36)
	assert.True(t, strings.HasPrefix(seen.Get("User-Agent"), "RuleStage/"))
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestHTTPClient_CreateRules(t *testing.T) {
	var payload map[string]any
	srv := jsonServer(t, 200, `{"success":true,"message":"2 rules added"}`, func(r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	})

	records := []map[string]any{
		{"sourceIP": "192.168.1.10", "destinationIP": "8.8.8.8", "protocol": "tcp", "portRange": "80-443", "action": "allow"},
		{"sourceIP": "10.0.0.0/8", "destinationIP": "1.1.1.1", "protocol": "udp", "portRange": "53", "action": "deny"},
	}
	res, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/firewall/rules", records)
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, "2 rules added", res.Message)
	assert.Nil(t, res.Rules, "no post-mutation state was sent")

	sent, ok := payload["rules"].([]any)
	require.True(t, ok)
	require.Len(t, sent, 2)
	assert.Equal(t, "tcp", sent[0].(map[string]any)["protocol"])
}

func TestHTTPClient_CreateRulesOutcomes(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		srv := jsonServer(t, 200, "", nil)
		_, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/timebased/rules", nil)

		var empty *EmptyResponseError
		require.ErrorAs(t, err, &empty)
		assert.Equal(t, 200, empty.StatusCode)

		var te *TransportError
		assert.False(t, errors.As(err, &te), "empty response is not a transport error")
	})

	t.Run("plain text body", func(t *testing.T) {
		srv := jsonServer(t, 201, "ok", nil)
		_, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/qos/rules", nil)
		var empty *EmptyResponseError
		assert.ErrorAs(t, err, &empty)
	})

	t.Run("refused", func(t *testing.T) {
		srv := jsonServer(t, 200, `{"success":false,"message":"duplicate rule"}`, nil)
		res, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/qos/rules", nil)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, "duplicate rule", res.Message)
	})

	t.Run("error field", func(t *testing.T) {
		srv := jsonServer(t, 200, `{"error":"invalid mac"}`, nil)
		res, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/qos/rules", nil)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, "invalid mac", res.Message)
	})

	t.Run("post mutation state", func(t *testing.T) {
		srv := jsonServer(t, 200, `{"success":true,"rules":[{"mark":"0x10"}]}`, nil)
		res, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/qos/rules", nil)
		require.NoError(t, err)
		require.NotNil(t, res.Rules)
		assert.Equal(t, "0x10", res.Rules[0]["mark"])
	})

	t.Run("http error", func(t *testing.T) {
		srv := jsonServer(t, 400, `{"error":"bad batch"}`, nil)
		_, err := NewHTTPClient(srv.URL).CreateRules(context.Background(), "/api/qos/rules", nil)
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 400, te.StatusCode)
		assert.Contains(t, err.Error(), "bad batch")
	})
}

func TestHTTPClient_DeleteRule(t *testing.T) {
	t.Run("escapes key", func(t *testing.T) {
		var escaped string
		srv := jsonServer(t, 200, `{"success":true}`, func(r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			escaped = r.URL.EscapedPath()
		})

		res, err := NewHTTPClient(srv.URL).DeleteRule(context.Background(), "/api/portforwarding/rules", "@redirect[0]/x y")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "/api/portforwarding/rules/@redirect%5B0%5D%2Fx%20y", escaped)
	})

	t.Run("logical failure", func(t *testing.T) {
		srv := jsonServer(t, 200, `{"success":false,"message":"Rule not found"}`, nil)
		res, err := NewHTTPClient(srv.URL).DeleteRule(context.Background(), "/api/firewall/rules", "cfg01a2")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Rule not found", res.Message)
	})

	t.Run("missing success means ok", func(t *testing.T) {
		srv := jsonServer(t, 200, `{"message":"deleted"}`, nil)
		res, err := NewHTTPClient(srv.URL).DeleteRule(context.Background(), "/api/firewall/rules", "cfg01a2")
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("not found status", func(t *testing.T) {
		srv := jsonServer(t, 404, `not here`, nil)
		_, err := NewHTTPClient(srv.URL).DeleteRule(context.Background(), "/api/firewall/rules", "cfg01a2")
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 404, te.StatusCode)
		assert.Contains(t, err.Error(), "not here")
	})
}

func TestHTTPClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, WithTimeout(time.Second)).ListRules(context.Background(), "/api/qos/rules")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestHTTPClient_ContextCancel(t *testing.T) {
	srv := jsonServer(t, 200, `[]`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(srv.URL).ListRules(ctx, "/api/qos/rules")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPClient_Metrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	ok := jsonServer(t, 200, `[]`, nil)
	empty := jsonServer(t, 200, ``, nil)
	bad := jsonServer(t, 502, `gateway`, nil)

	ctx := context.Background()
	NewHTTPClient(ok.URL, WithMetrics(reg)).ListRules(ctx, "/api/qos/rules")
	NewHTTPClient(empty.URL, WithMetrics(reg)).CreateRules(ctx, "/api/qos/rules", nil)
	NewHTTPClient(bad.URL, WithMetrics(reg)).DeleteRule(ctx, "/api/qos/rules", "0x10")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.TransportRequests.WithLabelValues("list", "qos", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.TransportRequests.WithLabelValues("create", "qos", metrics.OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.TransportRequests.WithLabelValues("delete", "qos", metrics.OutcomeHTTPError)))
}

func TestHTTPClient_FingerprintPinning(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithInsecure(true))
	_, err := c.ListRules(context.Background(), "/api/qos/rules")
	require.NoError(t, err)
	require.NotEmpty(t, c.SeenFingerprint())

	pinned := NewHTTPClient(srv.URL, WithFingerprint(c.SeenFingerprint()))
	_, err = pinned.ListRules(context.Background(), "/api/qos/rules")
	assert.NoError(t, err)

	wrong := NewHTTPClient(srv.URL, WithFingerprint(strings.Repeat("ab", 32)))
	_, err = wrong.ListRules(context.Background(), "/api/qos/rules")
	assert.ErrorContains(t, err, "fingerprint mismatch")
}

func TestHTTPClient_ConcurrentHandshakes(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithInsecure(true))
	var wg sync.WaitGroup
	for _, cat := range rules.All() {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			_, err := c.ListRules(context.Background(), path)
			assert.NoError(t, err)
			assert.NotEmpty(t, c.SeenFingerprint())
		}(rules.MustLookup(cat).Path)
	}
	wg.Wait()
}

func TestHTTPClient_WatchRules(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan []string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ws/rules", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub struct {
			Action string   `json:"action"`
			Topics []string `json:"topics"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub.Topics

		conn.WriteJSON(map[string]any{"topic": "status", "data": map[string]any{}})
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(map[string]any{"topic": "rules", "data": map[string]any{"path": "/api/qos/rules"}})
		conn.WriteJSON(map[string]any{"topic": "rules", "data": map[string]any{"path": "/api/dnsblocking/rules"}})

		// Hold the connection until the client goes away.
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- NewHTTPClient(srv.URL).WatchRules(ctx, func(path string) { got <- path })
	}()

	select {
	case topics := <-subscribed:
		assert.Equal(t, []string{"rules"}, topics)
	case <-time.After(5 * time.Second):
		t.Fatal("client never subscribed")
	}

	for _, want := range []string{"/api/qos/rules", "/api/dnsblocking/rules"} {
		select {
		case p := <-got:
			assert.Equal(t, want, p)
		case <-time.After(5 * time.Second):
			t.Fatalf("no notification for %s", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("WatchRules did not return after cancel")
	}
}
