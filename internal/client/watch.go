package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// RulesTopic is the websocket topic carrying rule-change notifications.
const RulesTopic = "rules"

// WatchRules subscribes to rule-change notifications and calls onChange
// with the collection path named in each one. It blocks until ctx is done
// or the connection drops.
func (c *HTTPClient) WatchRules(ctx context.Context, onChange func(path string)) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/ws/rules"

	headers := http.Header{}
	if c.apiKey != "" {
		headers.Set("X-API-Key", c.apiKey)
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
	}
	// Same TLS policy as REST calls, including fingerprint pinning.
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		dialer.TLSClientConfig = transport.TLSClientConfig
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sub := map[string]any{
		"action": "subscribe",
		"topics": []string{RulesTopic},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.logger.Info("watching rule changes", "url", wsURL)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read error: %w", err)
		}

		if !gjson.ValidBytes(message) {
			continue
		}
		env := gjson.ParseBytes(message)
		if env.Get("topic").String() != RulesTopic {
			continue
		}
		path := env.Get("data.path").String()
		if path == "" {
			c.logger.Debug("rule notification without path", "data", env.Get("data").Raw)
			continue
		}
		onChange(path)
	}
}
