package lsh

import (
	"math"
	"slices"
	"sync"
)

// Entry is one label in a bucket together with how often it was inserted.
type Entry struct {
	Label uint32
	Count uint32
}

// entrySize approximates the bytes held by one Entry.
const entrySize = 8

// stripe guards a slice of the table's buckets. Buckets live in an
// append-only arena addressed by index; index maps a bucket code to its slot.
type stripe struct {
	mu      sync.RWMutex
	index   map[uint32]int32
	buckets [][]Entry
	entries int
}

// Table is one LSH table: a striped, insert-only map from bucket code to a
// multiset of labels.
type Table struct {
	stripes []stripe
	mask    uint32
}

// NewTable creates an empty table with the given number of lock stripes
// (rounded to a power of two).
func NewTable(stripes int) *Table {
	n := 1
	for n < stripes {
		n <<= 1
	}
	t := &Table{
		stripes: make([]stripe, n),
		mask:    uint32(n - 1),
	}
	for i := range t.stripes {
		t.stripes[i].index = make(map[uint32]int32)
	}
	return t
}

func (t *Table) stripe(code uint32) *stripe {
	return &t.stripes[code&t.mask]
}

// Insert adds one occurrence of each label to the bucket at code and returns
// how many new (bucket, label) entries were created.
func (t *Table) Insert(code uint32, labels ...uint32) int {
	s := t.stripe(code)
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.index[code]
	if !ok {
		slot = int32(len(s.buckets))
		s.index[code] = slot
		s.buckets = append(s.buckets, nil)
	}

	added := 0
	bucket := s.buckets[slot]
	for _, label := range labels {
		i := slices.IndexFunc(bucket, func(e Entry) bool { return e.Label == label })
		if i < 0 {
			bucket = append(bucket, Entry{Label: label, Count: 1})
			added++
			continue
		}
		if bucket[i].Count < math.MaxUint32 {
			bucket[i].Count++
		}
	}
	s.buckets[slot] = bucket
	s.entries += added
	return added
}

// Visit calls fn for every entry of the bucket at code while holding the
// stripe's read lock. fn must not call back into the table.
func (t *Table) Visit(code uint32, fn func(Entry)) {
	s := t.stripe(code)
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.index[code]
	if !ok {
		return
	}
	for _, e := range s.buckets[slot] {
		fn(e)
	}
}

// Bucket returns a copy of the bucket at code.
func (t *Table) Bucket(code uint32) []Entry {
	var out []Entry
	t.Visit(code, func(e Entry) { out = append(out, e) })
	return out
}

// Len returns the number of non-empty buckets and stored entries.
func (t *Table) Len() (buckets, entries int) {
	for i := range t.stripes {
		s := &t.stripes[i]
		s.mu.RLock()
		buckets += len(s.buckets)
		entries += s.entries
		s.mu.RUnlock()
	}
	return buckets, entries
}

// Range calls fn for every bucket in ascending code order. The entries slice
// is a copy. Range stops when fn returns false.
func (t *Table) Range(fn func(code uint32, entries []Entry) bool) {
	type bucket struct {
		code    uint32
		entries []Entry
	}

	var all []bucket
	for i := range t.stripes {
		s := &t.stripes[i]
		s.mu.RLock()
		for code, slot := range s.index {
			all = append(all, bucket{code: code, entries: slices.Clone(s.buckets[slot])})
		}
		s.mu.RUnlock()
	}

	slices.SortFunc(all, func(a, b bucket) int {
		switch {
		case a.code < b.code:
			return -1
		case a.code > b.code:
			return 1
		default:
			return 0
		}
	})

	for _, b := range all {
		if !fn(b.code, b.entries) {
			return
		}
	}
}

// Restore merges persisted entries into the bucket at code. It is only used
// while loading a snapshot into an empty table.
func (t *Table) Restore(code uint32, entries []Entry) {
	s := t.stripe(code)
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.index[code]
	if !ok {
		slot = int32(len(s.buckets))
		s.index[code] = slot
		s.buckets = append(s.buckets, nil)
	}

	bucket := s.buckets[slot]
	for _, e := range entries {
		i := slices.IndexFunc(bucket, func(x Entry) bool { return x.Label == e.Label })
		if i < 0 {
			bucket = append(bucket, e)
			s.entries++
			continue
		}
		sum := uint64(bucket[i].Count) + uint64(e.Count)
		bucket[i].Count = uint32(min(sum, math.MaxUint32))
	}
	s.buckets[slot] = bucket
}
