package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Transport is the rule API as the console sees it. Paths are category
// collection paths such as /api/qos/rules.
type Transport interface {
	ListRules(ctx context.Context, path string) ([]map[string]any, error)
	CreateRules(ctx context.Context, path string, records []map[string]any) (*BatchResult, error)
	DeleteRule(ctx context.Context, path, key string) (*DeleteResult, error)
}

// BatchResult is the router's reply to a batch create.
type BatchResult struct {
	Accepted bool
	Message  string
	// Rules is the collection after the mutation when the router includes
	// it. nil means the router did not say; the caller must re-fetch.
	Rules []map[string]any
}

// DeleteResult is the router's reply to a single delete.
type DeleteResult struct {
	Success bool
	Message string
	Rules   []map[string]any
}

// ListRules fetches the active rules of a collection. Both a bare JSON
// array and an object with a "rules" array are accepted.
func (c *HTTPClient) ListRules(ctx context.Context, path string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.doRequest(ctx, "list", http.MethodGet, path, nil, func(status int, body []byte) error {
		if !gjson.ValidBytes(body) {
			return &TransportError{Op: "list", Path: path, StatusCode: status, Err: fmt.Errorf("response is not JSON")}
		}
		root := gjson.ParseBytes(body)
		list := root
		if !root.IsArray() {
			if msg := failureMessage(root); msg != "" {
				return &TransportError{Op: "list", Path: path, StatusCode: status, Err: fmt.Errorf("%s", msg)}
			}
			list = root.Get("rules")
			if !list.IsArray() {
				return &TransportError{Op: "list", Path: path, StatusCode: status, Err: fmt.Errorf("unexpected response shape")}
			}
		}
		out = objects(list)
		if skipped := len(list.Array()) - len(out); skipped > 0 {
			c.logger.Warn("skipped non-object rule records", "path", path, "count", skipped)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRules submits a batch as {"rules": [...]}.
func (c *HTTPClient) CreateRules(ctx context.Context, path string, records []map[string]any) (*BatchResult, error) {
	payload := map[string]any{"rules": records}
	var res *BatchResult
	err := c.doRequest(ctx, "create", http.MethodPost, path, payload, func(status int, body []byte) error {
		root, err := ack("create", path, status, body)
		if err != nil {
			return err
		}
		res = &BatchResult{
			Accepted: failureMessage(root) == "",
			Message:  message(root),
			Rules:    postState(root),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteRule removes one rule. The key is path-escaped.
func (c *HTTPClient) DeleteRule(ctx context.Context, path, key string) (*DeleteResult, error) {
	target := strings.TrimRight(path, "/") + "/" + url.PathEscape(key)
	var res *DeleteResult
	err := c.doRequest(ctx, "delete", http.MethodDelete, target, nil, func(status int, body []byte) error {
		root, err := ack("delete", target, status, body)
		if err != nil {
			return err
		}
		res = &DeleteResult{
			Success: failureMessage(root) == "",
			Message: message(root),
			Rules:   postState(root),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ack parses a mutation acknowledgement. Mutations must answer with JSON.
func ack(op, path string, status int, body []byte) (gjson.Result, error) {
	if len(strings.TrimSpace(string(body))) == 0 || !gjson.ValidBytes(body) {
		return gjson.Result{}, &EmptyResponseError{Op: op, Path: path, StatusCode: status}
	}
	return gjson.ParseBytes(body), nil
}

// failureMessage returns why the router refused, or "" when it did not.
// "success": false and a non-empty "error" both count as refusal.
func failureMessage(root gjson.Result) string {
	if e := root.Get("error"); e.Exists() && e.String() != "" && e.Type != gjson.False {
		return e.String()
	}
	if s := root.Get("success"); s.Exists() && !s.Bool() {
		if m := root.Get("message"); m.String() != "" {
			return m.String()
		}
		return "operation failed"
	}
	return ""
}

func message(root gjson.Result) string {
	if msg := failureMessage(root); msg != "" {
		return msg
	}
	return root.Get("message").String()
}

func postState(root gjson.Result) []map[string]any {
	r := root.Get("rules")
	if !r.IsArray() {
		return nil
	}
	return objects(r)
}

func objects(list gjson.Result) []map[string]any {
	out := make([]map[string]any, 0, len(list.Array()))
	list.ForEach(func(_, v gjson.Result) bool {
		if m, ok := v.Value().(map[string]any); ok {
			out = append(out, m)
		}
		return true
	})
	return out
}
