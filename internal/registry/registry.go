// Package registry maps label strings to dense, stable IDs.
//
// IDs are minted in first-seen order starting at 0 and are never reused or
// reassigned for the lifetime of a Registry.
package registry

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/flash/internal/conv"
)

// Registry is a concurrency-safe bidirectional label <-> ID map that also
// tracks how often each label was inserted into the tables.
type Registry struct {
	mu      sync.RWMutex
	ids     map[string]uint32
	labels  []string
	inserts []uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ids: make(map[string]uint32)}
}

// Mint returns the ID of label, assigning the next free ID on first sight.
func (r *Registry) Mint(label string) (uint32, error) {
	r.mu.RLock()
	id, ok := r.ids[label]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[label]; ok {
		return id, nil
	}
	id, err := conv.IntToUint32(len(r.labels))
	if err != nil {
		return 0, fmt.Errorf("registry: label space exhausted: %w", err)
	}
	r.ids[label] = id
	r.labels = append(r.labels, label)
	r.inserts = append(r.inserts, 0)
	return id, nil
}

// ID returns the ID of label if it has been minted.
func (r *Registry) ID(label string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[label]
	return id, ok
}

// Label returns the label for id.
func (r *Registry) Label(id uint32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.labels) {
		return "", false
	}
	return r.labels[id], true
}

// Len returns the number of minted labels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.labels)
}

// AddInserts records n table insertions for id.
func (r *Registry) AddInserts(id uint32, n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) < len(r.inserts) {
		r.inserts[id] += n
	}
}

// Inserts returns the recorded insertion count of id.
func (r *Registry) Inserts(id uint32) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.inserts) {
		return 0
	}
	return r.inserts[id]
}

// Labels returns all labels in ID order.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.labels...)
}

// Bitmap returns the IDs of the given labels. Unknown labels are ignored.
func (r *Registry) Bitmap(labels ...string) *roaring.Bitmap {
	bm := roaring.New()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range labels {
		if id, ok := r.ids[l]; ok {
			bm.Add(id)
		}
	}
	return bm
}

// Entry is the persisted form of one label.
type Entry struct {
	Label   string
	Inserts uint64
}

// Snapshot returns every label with its insertion count, in ID order.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.labels))
	for i, l := range r.labels {
		out[i] = Entry{Label: l, Inserts: r.inserts[i]}
	}
	return out
}

// Restore rebuilds a registry; entry i receives ID i.
func Restore(entries []Entry) (*Registry, error) {
	r := &Registry{
		ids:     make(map[string]uint32, len(entries)),
		labels:  make([]string, 0, len(entries)),
		inserts: make([]uint64, 0, len(entries)),
	}
	for i, e := range entries {
		if _, dup := r.ids[e.Label]; dup {
			return nil, fmt.Errorf("registry: duplicate label %q at id %d", e.Label, i)
		}
		r.ids[e.Label] = uint32(i)
		r.labels = append(r.labels, e.Label)
		r.inserts = append(r.inserts, e.Inserts)
	}
	return r, nil
}
