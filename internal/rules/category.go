// Package rules describes the rule categories the console manages: which
// fields a rule has, how each is validated, where the collection lives on
// the router API and how active rules are shown.
package rules

import (
	"fmt"
	"strings"
)

// Category identifies one rule collection.
type Category string

const (
	Traffic        Category = "traffic"
	PortForwarding Category = "portforwarding"
	PortBlocking   Category = "portblocking"
	TimeBased      Category = "timebased"
	MAC            Category = "mac"
	DNS            Category = "dns"
	QoS            Category = "qos"
	VPNNAT         Category = "vpn-nat"
)

// All returns every category in display order.
func All() []Category {
	return []Category{Traffic, PortForwarding, PortBlocking, TimeBased, MAC, DNS, QoS, VPNNAT}
}

var aliases = map[string]Category{
	"firewall":        Traffic,
	"port-forwarding": PortForwarding,
	"forwarding":      PortForwarding,
	"port-blocking":   PortBlocking,
	"time-based":      TimeBased,
	"time":            TimeBased,
	"macrouting":      MAC,
	"dnsblocking":     DNS,
	"vpn":             VPNNAT,
	"nat":             VPNNAT,
	"vpnnat":          VPNNAT,
}

// ParseCategory resolves a category name or one of its aliases.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range All() {
		if string(c) == name {
			return c, nil
		}
	}
	if c, ok := aliases[name]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q (known: %s)", s, strings.Join(Names(), ", "))
}

// Names returns the canonical category names.
func Names() []string {
	out := make([]string, 0, len(All()))
	for _, c := range All() {
		out = append(out, string(c))
	}
	return out
}

// Draft is a snapshot of form values staged for submission.
type Draft map[string]string

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ActiveRule is a rule as reported by the router. Key is opaque and only
// ever comes from a list response.
type ActiveRule struct {
	Key    string
	Fields map[string]any
}

// Get returns the first non-empty field among keys, stringified.
func (r ActiveRule) Get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r.Fields[k]; ok {
			if s := Stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Stringify renders a decoded JSON value for display. UCI list options
// arrive as arrays and are joined with spaces.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := Stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(t)
	}
}
