package mockapi

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"grimm.is/rulestage/internal/rules"
)

// entry is one stored rule. Writes become visible to GET only once the
// apply delay has passed, the way the router reloads its firewall.
type entry struct {
	key       string
	fields    map[string]any
	visibleAt time.Time
	removedAt time.Time // zero until deleted
}

func (e *entry) visible(now time.Time) bool {
	if now.Before(e.visibleAt) {
		return false
	}
	return e.removedAt.IsZero() || now.Before(e.removedAt)
}

type collection struct {
	desc    *rules.Descriptor
	renames map[string]string // form field -> router option
	entries []*entry
	seq     int
}

func newCollection(desc *rules.Descriptor) *collection {
	renames := map[string]string{}
	for _, col := range desc.Columns {
		if len(col.Keys) < 2 {
			continue
		}
		for _, k := range col.Keys[1:] {
			renames[k] = col.Keys[0]
		}
	}
	return &collection{desc: desc, renames: renames}
}

// list returns the records visible at now.
func (c *collection) list(now time.Time) []map[string]any {
	out := make([]map[string]any, 0, len(c.entries))
	for _, e := range c.entries {
		if e.visible(now) {
			out = append(out, e.fields)
		}
	}
	return out
}

// add stores a request record in router form and returns its key.
func (c *collection) add(record map[string]any, visibleAt time.Time) string {
	c.seq++
	fields := make(map[string]any, len(record)+2)
	for k, v := range record {
		s := rules.Stringify(v)
		if s == "" {
			continue
		}
		if uci, ok := c.renames[k]; ok {
			k = uci
		}
		fields[k] = s
	}

	if a, ok := fields["target"].(string); ok {
		fields["target"] = target(a)
	}
	if c.desc.Category == rules.PortBlocking {
		fields["target"] = "REJECT"
	}
	if c.desc.Category == rules.QoS {
		fields["classId"] = rules.QoSClassID(rules.Stringify(fields["priority"]))
	} else {
		fields["name"] = fmt.Sprintf("%s_%d", strings.ReplaceAll(string(c.desc.Category), "-", "_"), c.seq)
	}

	key := c.newKey()
	fields[c.desc.KeyField] = key
	c.entries = append(c.entries, &entry{key: key, fields: fields, visibleAt: visibleAt})
	return key
}

func (c *collection) newKey() string {
	if c.desc.Category == rules.QoS {
		used := map[string]bool{}
		for _, e := range c.entries {
			used[e.key] = true
		}
		for n := 0x10; ; n++ {
			k := fmt.Sprintf("0x%02x", n)
			if !used[k] {
				return k
			}
		}
	}
	return "cfg" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// remove marks key deleted from removedAt on. It reports false for keys
// that are unknown or already deleted.
func (c *collection) remove(key string, removedAt time.Time) bool {
	for _, e := range c.entries {
		if e.key == key && e.removedAt.IsZero() {
			e.removedAt = removedAt
			return true
		}
	}
	return false
}

// compact drops entries deleted before now.
func (c *collection) compact(now time.Time) {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.removedAt.IsZero() || now.Before(e.removedAt) {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

func (c *collection) keys(now time.Time) []string {
	var out []string
	for _, e := range c.entries {
		if e.visible(now) {
			out = append(out, e.key)
		}
	}
	sort.Strings(out)
	return out
}

func target(action string) string {
	switch strings.ToLower(action) {
	case "allow", "accept":
		return "ACCEPT"
	case "deny", "reject":
		return "REJECT"
	case "drop":
		return "DROP"
	}
	return strings.ToUpper(action)
}
