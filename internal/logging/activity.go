package logging

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one line of console activity, as shown in the TUI's activity
// pane. Category is empty for records not tied to a rule collection.
type Entry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Category  string    `json:"category,omitempty"`
	Message   string    `json:"message"`
}

func (e Entry) String() string {
	who := e.Component
	if who == "" {
		who = "console"
	}
	if e.Category != "" {
		who += "[" + e.Category + "]"
	}
	return fmt.Sprintf("%s %-5s %s: %s", e.Time.Format("15:04:05"), e.Level, who, e.Message)
}

// ActivityLog keeps the newest entries in a fixed-size ring.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewActivityLog creates a log holding at most size entries.
func NewActivityLog(size int) *ActivityLog {
	if size < 1 {
		size = 1
	}
	return &ActivityLog{entries: make([]Entry, size)}
}

// Add records e, overwriting the oldest entry once full.
func (a *ActivityLog) Add(e Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

// Len returns the number of entries held.
func (a *ActivityLog) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lenLocked()
}

func (a *ActivityLog) lenLocked() int {
	if a.full {
		return len(a.entries)
	}
	return a.next
}

// Recent returns up to n of the newest entries, oldest first.
func (a *ActivityLog) Recent(n int) []Entry {
	return a.filter(n, func(Entry) bool { return true })
}

// ForCategory is Recent restricted to entries for category plus entries
// that carry no category at all.
func (a *ActivityLog) ForCategory(category string, n int) []Entry {
	return a.filter(n, func(e Entry) bool {
		return e.Category == "" || e.Category == category
	})
}

func (a *ActivityLog) filter(n int, keep func(Entry) bool) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []Entry
	size := len(a.entries)
	for i := 1; i <= a.lenLocked() && len(out) < n; i++ {
		e := a.entries[(a.next-i+size)%size]
		if keep(e) {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Reset drops every entry.
func (a *ActivityLog) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = 0
	a.full = false
}

var (
	activity     *ActivityLog
	activityOnce sync.Once
)

// Activity returns the process-wide activity log fed by every Logger.
func Activity() *ActivityLog {
	activityOnce.Do(func() {
		activity = NewActivityLog(500)
	})
	return activity
}
