// Package client talks to the router's rule API.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/clock"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/metrics"
	"grimm.is/rulestage/internal/rules"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 30 * time.Second

// HTTPClient is an HTTP implementation of Transport.
type HTTPClient struct {
	baseURL             string
	apiKey              string
	insecure            bool
	httpClient          *http.Client
	expectedFingerprint string

	fpMu            sync.Mutex
	seenFingerprint string

	logger  *logging.Logger
	metrics *metrics.Registry
}

// ClientOption configures the HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key sent as X-API-Key.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithFingerprint pins the server certificate (SHA-256 hex of the leaf).
func WithFingerprint(fp string) ClientOption {
	return func(c *HTTPClient) {
		c.expectedFingerprint = strings.ToLower(strings.ReplaceAll(fp, ":", ""))
	}
}

// WithInsecure skips certificate verification. Routers commonly serve a
// self-signed certificate on their management address.
func WithInsecure(insecure bool) ClientOption {
	return func(c *HTTPClient) {
		c.insecure = insecure
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(l *logging.Logger) ClientOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every call in reg.
func WithMetrics(reg *metrics.Registry) ClientOption {
	return func(c *HTTPClient) {
		c.metrics = reg
	}
}

// NewHTTPClient creates a new HTTPClient for the given base URL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.WithComponent("client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.insecure || c.expectedFingerprint != "" {
		c.httpClient.Transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // verified below when pinned
				VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
					if len(rawCerts) == 0 {
						return nil
					}
					hash := sha256.Sum256(rawCerts[0])
					fingerprint := hex.EncodeToString(hash[:])
					c.fpMu.Lock()
					c.seenFingerprint = fingerprint
					c.fpMu.Unlock()

					if c.expectedFingerprint != "" && c.expectedFingerprint != fingerprint {
						return fmt.Errorf("certificate fingerprint mismatch: expected %s, got %s", c.expectedFingerprint, fingerprint)
					}
					return nil
				},
			},
		}
	}

	return c
}

// SeenFingerprint returns the SHA-256 hex of the last server certificate
// seen on a TLS handshake, for pinning it later.
func (c *HTTPClient) SeenFingerprint() string {
	c.fpMu.Lock()
	defer c.fpMu.Unlock()
	return c.seenFingerprint
}

// BaseURL returns the API root the client talks to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// doRequest performs one call and hands a 2xx body to decode. Network
// failures and non-2xx statuses come back as *TransportError.
func (c *HTTPClient) doRequest(ctx context.Context, op, method, path string, body any, decode func(status int, body []byte) error) error {
	start := clock.Now()

	status, respBody, err := c.roundTrip(ctx, op, method, path, body)
	if err == nil && decode != nil {
		err = decode(status, respBody)
	}

	c.metrics.RecordTransport(op, categoryLabel(path), outcomeOf(err), clock.Since(start))

	var empty *EmptyResponseError
	switch {
	case errors.As(err, &empty):
		c.logger.Warn("empty response", "op", op, "path", path, "status", status)
	case err != nil:
		c.logger.Warn("request failed", "op", op, "path", path, "error", err)
	default:
		c.logger.Debug("request ok", "op", op, "path", path, "status", status, "bytes", len(respBody))
	}
	return err
}

func outcomeOf(err error) string {
	var te *TransportError
	var empty *EmptyResponseError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &empty):
		return metrics.OutcomeEmpty
	case errors.As(err, &te) && te.StatusCode >= 300:
		return metrics.OutcomeHTTPError
	case errors.As(err, &te) && te.StatusCode == 0:
		return metrics.OutcomeNetwork
	default:
		return metrics.OutcomeDecode
	}
}

func (c *HTTPClient) roundTrip(ctx context.Context, op, method, path string, body any) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, &TransportError{Op: op, Path: path, Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", brand.UserAgent(brand.Version))
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Path: path, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, respBody, &TransportError{
			Op:         op,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API error (status %d): %s", resp.StatusCode, errorText(respBody)),
		}
	}

	return resp.StatusCode, respBody, nil
}

func categoryLabel(path string) string {
	if c, ok := rules.ByPath(path); ok {
		return string(c)
	}
	for _, d := range rules.All() {
		desc := rules.MustLookup(d)
		if strings.HasPrefix(path, desc.Path+"/") {
			return string(d)
		}
	}
	return "other"
}
