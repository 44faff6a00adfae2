package lsh

import (
	"fmt"
	"math"

	"github.com/hupe1980/flash/encoder"
)

// Hasher is the MinHash family behind every table.
//
// Table t owns HashesPerTable base functions h_tj(x) = mix64(x ^ s_tj). The
// minimum of each h_tj over the feature multiset is folded with the table seed
// into one code of RangePow bits. Two samples share a bucket in a table with
// probability close to J^K where J is their (multiset) Jaccard similarity.
type Hasher struct {
	numTables  int
	k          int
	rangePow   int
	maxWeight  int
	tableSeeds []uint64
	seeds      []uint64
}

// NewHasher derives all table and function seeds from master.
func NewHasher(numTables, k, rangePow, maxWeight int, master uint64) (*Hasher, error) {
	if err := checkShape(numTables, k, rangePow, maxWeight); err != nil {
		return nil, err
	}

	sm := splitMix{state: master}
	tableSeeds := make([]uint64, numTables)
	seeds := make([]uint64, numTables*k)
	for t := range numTables {
		tableSeeds[t] = sm.next()
		for j := range k {
			seeds[t*k+j] = sm.next()
		}
	}

	return &Hasher{
		numTables:  numTables,
		k:          k,
		rangePow:   rangePow,
		maxWeight:  maxWeight,
		tableSeeds: tableSeeds,
		seeds:      seeds,
	}, nil
}

// NewHasherFromSeeds rebuilds a Hasher from persisted seeds.
func NewHasherFromSeeds(tableSeeds, seeds []uint64, k, rangePow, maxWeight int) (*Hasher, error) {
	if err := checkShape(len(tableSeeds), k, rangePow, maxWeight); err != nil {
		return nil, err
	}
	if len(seeds) != len(tableSeeds)*k {
		return nil, fmt.Errorf("lsh: expected %d function seeds, got %d", len(tableSeeds)*k, len(seeds))
	}
	return &Hasher{
		numTables:  len(tableSeeds),
		k:          k,
		rangePow:   rangePow,
		maxWeight:  maxWeight,
		tableSeeds: append([]uint64(nil), tableSeeds...),
		seeds:      append([]uint64(nil), seeds...),
	}, nil
}

func checkShape(numTables, k, rangePow, maxWeight int) error {
	switch {
	case numTables <= 0:
		return fmt.Errorf("lsh: %w: num tables %d", ErrInvalidShape, numTables)
	case k <= 0:
		return fmt.Errorf("lsh: %w: hashes per table %d", ErrInvalidShape, k)
	case rangePow <= 0 || rangePow > 32:
		return fmt.Errorf("lsh: %w: range pow %d", ErrInvalidShape, rangePow)
	case maxWeight <= 0:
		return fmt.Errorf("lsh: %w: max feature weight %d", ErrInvalidShape, maxWeight)
	}
	return nil
}

// NumTables returns the number of tables.
func (h *Hasher) NumTables() int { return h.numTables }

// HashesPerTable returns K.
func (h *Hasher) HashesPerTable() int { return h.k }

// RangePow returns the code width in bits.
func (h *Hasher) RangePow() int { return h.rangePow }

// MaxWeight returns the multiset copy cap.
func (h *Hasher) MaxWeight() int { return h.maxWeight }

// TableSeeds returns a copy of the per-table seeds.
func (h *Hasher) TableSeeds() []uint64 { return append([]uint64(nil), h.tableSeeds...) }

// Seeds returns a copy of the per-function seeds, table-major.
func (h *Hasher) Seeds() []uint64 { return append([]uint64(nil), h.seeds...) }

// Codes appends one bucket code per table to dst. An empty feature set yields
// no codes.
func (h *Hasher) Codes(fs encoder.FeatureSet, dst []uint32) []uint32 {
	if fs.Empty() {
		return dst
	}

	mins := make([]uint64, len(h.seeds))
	for i := range mins {
		mins[i] = math.MaxUint64
	}

	for f := range fs.All {
		copies := h.copies(f.Weight)
		for c := range copies {
			x := uint64(f.ID) | uint64(c)<<32
			for j, s := range h.seeds {
				if v := mix64(x ^ s); v < mins[j] {
					mins[j] = v
				}
			}
		}
	}

	shift := 64 - h.rangePow
	for t := range h.numTables {
		code := h.tableSeeds[t]
		for j := range h.k {
			code = mix64(code ^ mins[t*h.k+j])
		}
		dst = append(dst, uint32(code>>shift))
	}
	return dst
}

func (h *Hasher) copies(w float32) int {
	c := int(math.Ceil(float64(w)))
	if c < 1 {
		return 1
	}
	if c > h.maxWeight {
		return h.maxWeight
	}
	return c
}

// mix64 is the splitmix64 finalizer. It behaves as a random permutation of
// uint64 for MinHash purposes.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

type splitMix struct {
	state uint64
}

func (s *splitMix) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	return mix64(s.state)
}
