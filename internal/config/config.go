// Package config loads the console's settings from HCL or JSON.
//
// A config is read once at startup and passed explicitly to the client and
// the controllers; nothing here is process-global.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/rules"
)

// CurrentSchemaVersion is written by Encode and assumed when absent.
const CurrentSchemaVersion = "1.0"

// DefaultURL is where the router API is expected when nothing is configured.
const DefaultURL = "http://localhost:5000"

// Config is the top-level console configuration.
type Config struct {
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	API *APIConfig `hcl:"api,block" json:"api,omitempty"`

	// SettleDelay is how long to wait after a mutation before re-reading
	// the active list ("0s" re-reads at once).
	SettleDelay string `hcl:"settle_delay,optional" json:"settle_delay,omitempty"`

	// Push subscribes to the router's rule-change websocket.
	Push bool `hcl:"push,optional" json:"push,omitempty"`

	Categories []CategoryConfig `hcl:"category,block" json:"categories,omitempty"`

	Log *LogConfig `hcl:"log,block" json:"log,omitempty"`

	// MetricsListen serves Prometheus metrics on this address when set.
	MetricsListen string `hcl:"metrics_listen,optional" json:"metrics_listen,omitempty"`
}

// APIConfig locates and authenticates against the router API.
type APIConfig struct {
	URL         string `hcl:"url,optional" json:"url,omitempty"`
	APIKey      string `hcl:"api_key,optional" json:"api_key,omitempty"`
	Timeout     string `hcl:"timeout,optional" json:"timeout,omitempty"`
	Insecure    bool   `hcl:"insecure,optional" json:"insecure,omitempty"`
	Fingerprint string `hcl:"fingerprint,optional" json:"fingerprint,omitempty"`
}

// CategoryConfig holds per-category overrides.
type CategoryConfig struct {
	Name        string `hcl:"name,label" json:"name"`
	SettleDelay string `hcl:"settle_delay,optional" json:"settle_delay,omitempty"`
}

// LogConfig controls the console's own logging.
type LogConfig struct {
	Level string `hcl:"level,optional" json:"level,omitempty"`
	JSON  bool   `hcl:"json,optional" json:"json,omitempty"`
	// File receives log output; the terminal UI always logs to a file so
	// the alternate screen stays clean.
	File string `hcl:"file,optional" json:"file,omitempty"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty settings.
func (c *Config) ApplyDefaults() {
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if c.API == nil {
		c.API = &APIConfig{}
	}
	if c.API.URL == "" {
		c.API.URL = DefaultURL
	}
	if c.API.Timeout == "" {
		c.API.Timeout = client.DefaultTimeout.String()
	}
	if c.SettleDelay == "" {
		c.SettleDelay = rules.DefaultSettleDelay.String()
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnv overrides settings from RULESTAGE_* environment variables.
func (c *Config) ApplyEnv() {
	if c.API == nil {
		c.API = &APIConfig{}
	}
	prefix := brand.ConfigEnvPrefix
	if v := os.Getenv(prefix + "_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv(prefix + "_LOG_LEVEL"); v != "" {
		if c.Log == nil {
			c.Log = &LogConfig{}
		}
		c.Log.Level = v
	}
}

// Timeout returns the parsed request timeout.
func (c *Config) Timeout() time.Duration {
	if c.API == nil || c.API.Timeout == "" {
		return client.DefaultTimeout
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return client.DefaultTimeout
	}
	return d
}

// SettleDelays resolves the settle delay of every category: the global
// setting, then any category block.
func (c *Config) SettleDelays() (map[rules.Category]time.Duration, error) {
	global := rules.DefaultSettleDelay
	if c.SettleDelay != "" {
		d, err := time.ParseDuration(c.SettleDelay)
		if err != nil {
			return nil, fmt.Errorf("settle_delay: %w", err)
		}
		global = d
	}

	out := make(map[rules.Category]time.Duration, len(rules.All()))
	for _, cat := range rules.All() {
		out[cat] = global
	}
	for _, cc := range c.Categories {
		cat, err := rules.ParseCategory(cc.Name)
		if err != nil {
			return nil, err
		}
		if cc.SettleDelay == "" {
			continue
		}
		d, err := time.ParseDuration(cc.SettleDelay)
		if err != nil {
			return nil, fmt.Errorf("category %q settle_delay: %w", cc.Name, err)
		}
		out[cat] = d
	}
	return out, nil
}

// ClientOptions turns the API block into client options.
func (c *Config) ClientOptions() []client.ClientOption {
	opts := []client.ClientOption{client.WithTimeout(c.Timeout())}
	if c.API == nil {
		return opts
	}
	if c.API.APIKey != "" {
		opts = append(opts, client.WithAPIKey(c.API.APIKey))
	}
	if c.API.Insecure {
		opts = append(opts, client.WithInsecure(true))
	}
	if c.API.Fingerprint != "" {
		opts = append(opts, client.WithFingerprint(c.API.Fingerprint))
	}
	return opts
}

// BaseURL returns the configured API root without a trailing slash.
func (c *Config) BaseURL() string {
	if c.API == nil || c.API.URL == "" {
		return DefaultURL
	}
	return strings.TrimRight(c.API.URL, "/")
}
