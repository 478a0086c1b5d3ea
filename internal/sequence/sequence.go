// Package sequence implements a sorted, dynamically sized associative array.
// Entries are kept in ascending key order in a contiguous slice that grows
// and shrinks in fixed increments. Keys and values are not owned: the
// sequence only stores them.
package sequence

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"mqldb/internal/errors"
)

const (
	// MaxAlloc is the exclusive upper bound of the growth increment.
	MaxAlloc = 65536

	// MaxEntries is the default capacity limit. Growing past it fails with
	// ErrNoMemory.
	MaxEntries = 1 << 24
)

type entry[K, V any] struct {
	key   K
	value V
	added uint64 // insertion stamp, orders entries by recency
}

// Sequence is an ordered key -> value index. It is not safe for concurrent
// use; callers serialize access.
type Sequence[K, V any] struct {
	alloc   int
	limit   int
	compare func(a, b K) int
	print   func(K) string

	size    int // capacity in entries, always a multiple of alloc
	head    int // slot of the most recently added entry
	entries []entry[K, V]
	clock   uint64

	maxEntry int
}

// New creates an empty sequence growing in steps of alloc entries.
func New[K, V any](alloc int, compare func(a, b K) int, print func(K) string) (*Sequence[K, V], error) {
	if alloc <= 0 || alloc >= MaxAlloc {
		return nil, fmt.Errorf("sequence: growth increment %d out of range: %w", alloc, errors.ErrInvalidArgument)
	}
	if compare == nil || print == nil {
		return nil, fmt.Errorf("sequence: comparator and printer are required: %w", errors.ErrInvalidArgument)
	}

	return &Sequence[K, V]{
		alloc:   alloc,
		limit:   MaxEntries,
		compare: compare,
		print:   print,
	}, nil
}

// SetLimit changes the maximum number of entries the sequence may hold.
func (s *Sequence[K, V]) SetLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// Limit returns the maximum number of entries.
func (s *Sequence[K, V]) Limit() int { return s.limit }

// Fits reports whether extra more entries can be added without the
// sequence failing to grow.
func (s *Sequence[K, V]) Fits(extra int) bool {
	need := len(s.entries) + extra
	if need <= s.size {
		return true
	}
	grown := (need + s.alloc - 1) / s.alloc * s.alloc
	return grown <= s.limit
}

// Len returns the number of entries.
func (s *Sequence[K, V]) Len() int { return len(s.entries) }

// Cap returns the current capacity in entries.
func (s *Sequence[K, V]) Cap() int { return s.size }

// MaxLen returns the largest number of entries the sequence has held.
func (s *Sequence[K, V]) MaxLen() int { return s.maxEntry }

// Reset drops every entry and releases the backing array.
func (s *Sequence[K, V]) Reset() {
	s.entries = nil
	s.size = 0
	s.head = 0
}

func (s *Sequence[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(s.entries, key, func(e entry[K, V], k K) int {
		return s.compare(e.key, k)
	})
}

// Add inserts key in order. If an equal key is already present its value
// is replaced. When the sequence cannot grow it is reset and ErrNoMemory is
// returned.
func (s *Sequence[K, V]) Add(key K, value V) error {
	i, found := s.search(key)
	if found {
		s.clock++
		s.entries[i].value = value
		s.entries[i].added = s.clock
		s.head = i
		return nil
	}

	n := len(s.entries)
	if n+1 > s.size {
		if s.size+s.alloc > s.limit {
			s.Reset()
			return fmt.Errorf("sequence: cannot grow beyond %d entries: %w", s.limit, errors.ErrNoMemory)
		}
		s.resize(s.size + s.alloc)
	}

	s.entries = s.entries[:n+1]
	copy(s.entries[i+1:], s.entries[i:n])
	s.clock++
	s.entries[i] = entry[K, V]{key: key, value: value, added: s.clock}
	s.head = i

	if n+1 > s.maxEntry {
		s.maxEntry = n + 1
	}
	return nil
}

// Lookup returns the value stored under key.
func (s *Sequence[K, V]) Lookup(key K) (V, bool) {
	if i, found := s.search(key); found {
		return s.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Delete removes key and returns its value. The backing array shrinks by
// one increment once occupancy drops a full increment below capacity and
// is released when the sequence becomes empty.
func (s *Sequence[K, V]) Delete(key K) (V, error) {
	var zero V

	i, found := s.search(key)
	if !found {
		return zero, fmt.Errorf("sequence: key '%s': %w", s.print(key), errors.ErrNotFound)
	}

	value := s.entries[i].value
	n := len(s.entries) - 1

	if n <= 0 {
		s.Reset()
		return value, nil
	}

	copy(s.entries[i:], s.entries[i+1:])
	s.entries[n] = entry[K, V]{}
	s.entries = s.entries[:n]

	switch {
	case i == s.head:
		s.head = s.latest()
	case i < s.head:
		s.head--
	}

	if n <= s.size-s.alloc {
		s.resize(s.size - s.alloc)
	}
	return value, nil
}

// latest returns the slot of the most recently added entry.
func (s *Sequence[K, V]) latest() int {
	head := 0
	for i := range s.entries {
		if s.entries[i].added > s.entries[head].added {
			head = i
		}
	}
	return head
}

func (s *Sequence[K, V]) resize(size int) {
	entries := make([]entry[K, V], len(s.entries), size)
	copy(entries, s.entries)
	s.entries = entries
	s.size = size
}

// Entry addresses entries relative to the most recently added one:
// offset 0 is the head, positive offsets step towards lower slots and
// negative ones towards higher slots, wrapping around.
func (s *Sequence[K, V]) Entry(offset int) (V, bool) {
	var zero V

	n := len(s.entries)
	if n == 0 {
		return zero, false
	}
	i := ((s.head-offset)%n + n) % n
	return s.entries[i].value, true
}

// Cursor iterates over a snapshot of a sequence taken on the first call to
// Iterate. The zero value is ready to use.
type Cursor[V any] struct {
	values  []V
	index   int
	started bool
}

// Iterate returns the next value of the snapshot held by c. Mutating the
// sequence between calls does not affect what the cursor yields. The
// snapshot is released once it is exhausted.
func (s *Sequence[K, V]) Iterate(c *Cursor[V]) (V, bool) {
	var zero V

	if !c.started {
		c.started = true
		c.values = make([]V, len(s.entries))
		for i := range s.entries {
			c.values[i] = s.entries[i].value
		}
	}

	if c.index >= len(c.values) {
		c.values = nil
		return zero, false
	}

	v := c.values[c.index]
	c.index++
	return v, true
}

// All returns an iterator over a snapshot of the values in key order.
func (s *Sequence[K, V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		var c Cursor[V]
		for {
			v, ok := s.Iterate(&c)
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Keys returns the keys in order.
func (s *Sequence[K, V]) Keys() []K {
	keys := make([]K, len(s.entries))
	for i := range s.entries {
		keys[i] = s.entries[i].key
	}
	return keys
}

// String prints one line per entry.
func (s *Sequence[K, V]) String() string {
	var b strings.Builder
	for i := range s.entries {
		fmt.Fprintf(&b, "   %05d: '%s' / %v\n", i, s.print(s.entries[i].key), s.entries[i].value)
	}
	return b.String()
}
