package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/rules"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.SchemaVersion != "" && !strings.HasPrefix(c.SchemaVersion, "1.") {
		add("schema_version", "unsupported version %q (supported: 1.x)", c.SchemaVersion)
	}

	if c.API != nil {
		if c.API.URL != "" {
			u, err := url.Parse(c.API.URL)
			switch {
			case err != nil:
				add("api.url", "%v", err)
			case u.Scheme != "http" && u.Scheme != "https":
				add("api.url", "scheme must be http or https, got %q", u.Scheme)
			case u.Host == "":
				add("api.url", "missing host")
			}
		}
		if c.API.Timeout != "" {
			if d, err := time.ParseDuration(c.API.Timeout); err != nil {
				add("api.timeout", "%v", err)
			} else if d <= 0 {
				add("api.timeout", "must be positive")
			}
		}
		if fp := strings.ReplaceAll(c.API.Fingerprint, ":", ""); fp != "" && len(fp) != 64 {
			add("api.fingerprint", "expected a SHA-256 hex digest")
		}
	}

	if c.SettleDelay != "" {
		if d, err := time.ParseDuration(c.SettleDelay); err != nil {
			add("settle_delay", "%v", err)
		} else if d < 0 {
			add("settle_delay", "must not be negative")
		}
	}

	seen := map[rules.Category]bool{}
	for _, cc := range c.Categories {
		field := fmt.Sprintf("category.%s", cc.Name)
		cat, err := rules.ParseCategory(cc.Name)
		if err != nil {
			add(field, "%v", err)
			continue
		}
		if seen[cat] {
			add(field, "duplicate category block")
		}
		seen[cat] = true
		if cc.SettleDelay != "" {
			if d, err := time.ParseDuration(cc.SettleDelay); err != nil {
				add(field+".settle_delay", "%v", err)
			} else if d < 0 {
				add(field+".settle_delay", "must not be negative")
			}
		}
	}

	if c.Log != nil {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			add("log.level", "%v", err)
		}
	}

	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			add("metrics_listen", "%v", err)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
