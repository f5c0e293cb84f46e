package client

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// TransportError is a failed call: network error, non-2xx status, or a
// body that could not be understood. StatusCode is 0 when no response
// was received.
type TransportError struct {
	Op         string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EmptyResponseError is a 2xx reply whose body is empty or not JSON when
// a JSON acknowledgement was expected.
type EmptyResponseError struct {
	Op         string
	Path       string
	StatusCode int
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s %s: empty response from server (status %d)", e.Op, e.Path, e.StatusCode)
}

// errorText pulls a human message out of an error body.
func errorText(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, k := range []string{"error", "message", "detail"} {
			if v := gjson.GetBytes(body, k); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	text := strings.TrimSpace(string(bytes.ToValidUTF8(body, nil)))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return "no body"
	}
	return text
}
