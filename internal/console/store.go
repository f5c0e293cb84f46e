package console

import (
	"fmt"

	"grimm.is/rulestage/internal/rules"
)

type entry struct {
	id    uint64
	draft rules.Draft
}

// DraftStore is the ordered list of staged rules. It is not safe for
// concurrent use; the Controller serialises access.
type DraftStore struct {
	entries []entry
	nextID  uint64
}

// Append adds a copy of d at the end and returns its internal id.
func (s *DraftStore) Append(d rules.Draft) uint64 {
	s.nextID++
	s.entries = append(s.entries, entry{id: s.nextID, draft: d.Clone()})
	return s.nextID
}

// Delete removes the draft at position i, keeping the order of the rest.
func (s *DraftStore) Delete(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("draft index %d out of range (have %d)", i, len(s.entries))
	}
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	return nil
}

// Len returns the number of staged drafts.
func (s *DraftStore) Len() int { return len(s.entries) }

// All returns copies of every draft in order.
func (s *DraftStore) All() []rules.Draft {
	out := make([]rules.Draft, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.draft.Clone()
	}
	return out
}

// snapshot returns the ids and drafts currently staged.
func (s *DraftStore) snapshot() ([]uint64, []rules.Draft) {
	ids := make([]uint64, len(s.entries))
	drafts := make([]rules.Draft, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.id
		drafts[i] = e.draft
	}
	return ids, drafts
}

// removeIDs drops the drafts that were part of a completed submission.
// Drafts staged while the submission was in flight survive.
func (s *DraftStore) removeIDs(ids []uint64) {
	gone := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !gone[e.id] {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// Clear empties the store.
func (s *DraftStore) Clear() { s.entries = nil }

// Mirror is the last known list of active rules. It is only ever replaced
// wholesale from a router response.
type Mirror struct {
	rules []rules.ActiveRule
	index map[string]int
}

// Replace swaps in a new list.
func (m *Mirror) Replace(rs []rules.ActiveRule) {
	m.rules = rs
	m.index = make(map[string]int, len(rs))
	for i, r := range rs {
		m.index[r.Key] = i
	}
}

// Has reports whether key is in the list.
func (m *Mirror) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Get returns the rule with key.
func (m *Mirror) Get(key string) (rules.ActiveRule, bool) {
	i, ok := m.index[key]
	if !ok {
		return rules.ActiveRule{}, false
	}
	return m.rules[i], true
}

// Len returns the number of active rules.
func (m *Mirror) Len() int { return len(m.rules) }

// All returns the rules in router order. The slice is a copy; the field
// maps are shared and must be treated as read-only.
func (m *Mirror) All() []rules.ActiveRule {
	out := make([]rules.ActiveRule, len(m.rules))
	copy(out, m.rules)
	return out
}
