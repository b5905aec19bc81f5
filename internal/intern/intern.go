// Package intern deduplicates the short strings argtree produces while
// splitting tokens: classified names and bundled short-flag clusters.
package intern

import (
	"sync"
	"unsafe"
)

// Table is a concurrency-safe set of canonical strings.
type Table struct {
	strings map[string]string
	mutex   sync.RWMutex
}

// NewTable creates a table with the given initial capacity.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = 64
	}
	return &Table{
		strings: make(map[string]string, capacity),
	}
}

// Intern returns the canonical copy of s.
func (t *Table) Intern(s string) string {
	if len(s) == 1 && s[0] < 0x80 {
		return ascii[s[0]]
	}

	t.mutex.RLock()
	if interned, ok := t.strings[s]; ok {
		t.mutex.RUnlock()
		return interned
	}
	t.mutex.RUnlock()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if interned, ok := t.strings[s]; ok {
		return interned
	}
	t.strings[s] = s
	return s
}

// InternBytes interns b without allocating when the value is already known.
func (t *Table) InternBytes(b []byte) string {
	if len(b) == 1 && b[0] < 0x80 {
		return ascii[b[0]]
	}

	t.mutex.RLock()
	if interned, ok := t.strings[bytesToString(b)]; ok {
		t.mutex.RUnlock()
		return interned
	}
	t.mutex.RUnlock()

	return t.Intern(string(b))
}

// Preload adds names ahead of parsing.
func (t *Table) Preload(names ...string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, s := range names {
		if _, ok := t.strings[s]; !ok {
			t.strings[s] = s
		}
	}
}

// Len returns the number of multi-byte entries held.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.strings)
}

// Reset drops every entry.
func (t *Table) Reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	clear(t.strings)
}

var ascii [128]string

//nolint:gochecknoinits // single-byte table is filled once
func init() {
	for i := range ascii {
		ascii[i] = string(rune(i))
	}
}

func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Names is the process-wide table used by the parser.
var Names = NewTable(128)

// Intern interns s in Names.
func Intern(s string) string {
	return Names.Intern(s)
}

// InternBytes interns b in Names.
//
//nolint:revive // keep name for symmetry with Intern
func InternBytes(b []byte) string {
	return Names.InternBytes(b)
}
