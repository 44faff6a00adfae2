// Package lsh implements the hash table bank: T independent MinHash tables
// mapping bucket codes to the labels trained there.
//
// Inserts and lookups are safe for concurrent use. Each bucket is guarded by
// its table's stripe lock, so concurrent inserts never lose a label. A lookup
// that races with an insert may see the insert in some tables and not yet in
// others; every insert that finished before the lookup started is visible.
package lsh

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/flash/encoder"
)

// ErrInvalidShape is returned for non-positive table parameters.
var ErrInvalidShape = errors.New("invalid bank shape")

// parallelTables is the table count from which lookups fan out.
const parallelTables = 128

// Options configures a Bank.
type Options struct {
	NumTables        int
	HashesPerTable   int
	RangePow         int
	MaxFeatureWeight int
	Stripes          int
	Workers          int
	Seed             uint64
}

// Votes maps a label ID to the number of tables whose query bucket held it.
type Votes map[uint32]uint32

// Bank is the array of LSH tables.
type Bank struct {
	hasher  *Hasher
	tables  []*Table
	workers int
}

// New allocates an empty bank.
func New(opts Options) (*Bank, error) {
	h, err := NewHasher(opts.NumTables, opts.HashesPerTable, opts.RangePow, opts.MaxFeatureWeight, opts.Seed)
	if err != nil {
		return nil, err
	}
	return NewWithHasher(h, opts.Stripes, opts.Workers), nil
}

// NewWithHasher allocates an empty bank around an existing hasher.
func NewWithHasher(h *Hasher, stripes, workers int) *Bank {
	if workers < 1 {
		workers = 1
	}
	tables := make([]*Table, h.NumTables())
	for i := range tables {
		tables[i] = NewTable(stripes)
	}
	return &Bank{hasher: h, tables: tables, workers: workers}
}

// Hasher returns the bank's hash family.
func (b *Bank) Hasher() *Hasher { return b.hasher }

// NumTables returns T.
func (b *Bank) NumTables() int { return len(b.tables) }

// Table returns table i.
func (b *Bank) Table(i int) *Table { return b.tables[i] }

// BucketCodes returns one code per table, or nil for an empty feature set.
func (b *Bank) BucketCodes(fs encoder.FeatureSet) []uint32 {
	if fs.Empty() {
		return nil
	}
	return b.hasher.Codes(fs, make([]uint32, 0, len(b.tables)))
}

// Insert adds labels to the bucket of fs in every table and returns the number
// of new (bucket, label) entries. Empty feature sets are ignored.
func (b *Bank) Insert(fs encoder.FeatureSet, labels ...uint32) int {
	if len(labels) == 0 {
		return 0
	}
	codes := b.BucketCodes(fs)
	if codes == nil {
		return 0
	}

	added := 0
	for t, code := range codes {
		added += b.tables[t].Insert(code, labels...)
	}
	return added
}

// Candidates returns, for every label sharing a bucket with fs, the number of
// tables in which it did. A non-nil allow bitmap restricts the labels counted.
func (b *Bank) Candidates(fs encoder.FeatureSet, allow *roaring.Bitmap) Votes {
	codes := b.BucketCodes(fs)
	if codes == nil {
		return Votes{}
	}

	if b.workers <= 1 || len(codes) < parallelTables {
		votes := make(Votes)
		b.collect(codes, 0, allow, votes)
		return votes
	}

	chunks := min(b.workers, len(codes))
	size := (len(codes) + chunks - 1) / chunks
	partial := make([]Votes, chunks)

	var g errgroup.Group
	g.SetLimit(b.workers)
	for c := range chunks {
		lo := c * size
		hi := min(lo+size, len(codes))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			v := make(Votes)
			b.collect(codes[lo:hi], lo, allow, v)
			partial[c] = v
			return nil
		})
	}
	// collect cannot fail; the group only bounds the fan-out.
	_ = g.Wait()

	votes := partial[0]
	if votes == nil {
		votes = make(Votes)
	}
	for _, v := range partial[1:] {
		for label, n := range v {
			votes[label] += n
		}
	}
	return votes
}

// collect adds one vote per table for every label in the query's bucket.
func (b *Bank) collect(codes []uint32, offset int, allow *roaring.Bitmap, votes Votes) {
	for i, code := range codes {
		b.tables[offset+i].Visit(code, func(e Entry) {
			if allow != nil && !allow.Contains(e.Label) {
				return
			}
			votes[e.Label]++
		})
	}
}

// Stats summarizes bank occupancy.
type Stats struct {
	Tables  int
	Buckets int
	Entries int
}

// Stats returns the current occupancy.
func (b *Bank) Stats() Stats {
	s := Stats{Tables: len(b.tables)}
	for _, t := range b.tables {
		buckets, entries := t.Len()
		s.Buckets += buckets
		s.Entries += entries
	}
	return s
}

// MemoryUsage approximates the bytes held by bucket entries.
func (b *Bank) MemoryUsage() int64 {
	return int64(b.Stats().Entries) * entrySize
}

// EntryBytes is the accounting size of one new entry returned by Insert.
func EntryBytes(n int) int64 { return int64(n) * entrySize }
