// Package snapshot serializes a trained index so that loading it reproduces
// identical query behavior.
//
// A snapshot is a fixed header followed by one (optionally compressed) body
// block:
//
//	magic "FLSH" | version u16 | compression u8 | reserved u8 | crc32c u32 | block
//
// The CRC32C covers the stored block. The body holds the YAML config, every
// table and function seed, the label registry in ID order, and the bucket
// contents of each table in ascending code order.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/internal/conv"
	"github.com/hupe1980/flash/internal/hash"
	"github.com/hupe1980/flash/internal/registry"
	"github.com/hupe1980/flash/lsh"
)

// Version is the current format version.
const Version uint16 = 1

const headerSize = 12

var magic = [4]byte{'F', 'L', 'S', 'H'}

var (
	// ErrBadMagic is returned for data that is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrUnsupportedVersion is returned for snapshots from a newer format.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrCorrupt is returned when the body cannot be decoded.
	ErrCorrupt = errors.New("snapshot: corrupt body")
)

// State is everything a snapshot carries.
type State struct {
	Config config.Config
	Labels []registry.Entry
	Bank   *lsh.Bank
}

// Header describes a snapshot without decoding its body.
type Header struct {
	Version     uint16
	Compression Compression
	Checksum    uint32
}

// Encode serializes st.
func Encode(st State, c Compression) ([]byte, error) {
	var cfg bytes.Buffer
	if err := config.Encode(&cfg, st.Config); err != nil {
		return nil, err
	}

	w := &writer{}
	w.bytes(cfg.Bytes())

	h := st.Bank.Hasher()
	w.uvarint(uint64(h.NumTables()))
	w.uvarint(uint64(h.HashesPerTable()))
	w.uvarint(uint64(h.RangePow()))
	w.uvarint(uint64(h.MaxWeight()))
	for _, s := range h.TableSeeds() {
		w.u64(s)
	}
	for _, s := range h.Seeds() {
		w.u64(s)
	}

	w.uvarint(uint64(len(st.Labels)))
	for _, e := range st.Labels {
		w.bytes([]byte(e.Label))
		w.uvarint(e.Inserts)
	}

	for t := range st.Bank.NumTables() {
		table := st.Bank.Table(t)
		buckets, _ := table.Len()
		w.uvarint(uint64(buckets))

		// Codes ascend, so deltas stay small.
		prev := uint32(0)
		table.Range(func(code uint32, entries []lsh.Entry) bool {
			w.uvarint(uint64(code - prev))
			prev = code
			w.uvarint(uint64(len(entries)))
			for _, e := range entries {
				w.uvarint(uint64(e.Label))
				w.uvarint(uint64(e.Count))
			}
			return true
		})
	}

	block, err := compressBlock(w.buf, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(block))
	copy(out, magic[:])
	binary.LittleEndian.PutUint16(out[4:], Version)
	out[6] = byte(c)
	binary.LittleEndian.PutUint32(out[8:], hash.CRC32C(block))
	return append(out, block...), nil
}

// ReadHeader validates and returns the snapshot header.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(data[4:]),
		Compression: Compression(data[6]),
		Checksum:    binary.LittleEndian.Uint32(data[8:]),
	}
	if h.Version == 0 || h.Version > Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Decode rebuilds the state. workers overrides the configured fan-out when
// positive.
func Decode(data []byte, workers int) (State, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return State{}, err
	}
	block := data[headerSize:]
	if err := hash.Verify(block, h.Checksum); err != nil {
		return State{}, fmt.Errorf("snapshot: %w", err)
	}
	body, err := decompressBlock(block, h.Compression)
	if err != nil {
		return State{}, err
	}

	r := &reader{buf: body}

	cfg, err := config.Decode(bytes.NewReader(r.bytes()))
	if r.err != nil {
		return State{}, r.err
	}
	if err != nil {
		return State{}, err
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	numTables := r.int()
	k := r.int()
	rangePow := r.int()
	maxWeight := r.int()
	if r.err != nil {
		return State{}, r.err
	}
	if numTables != cfg.NumTables || k != cfg.HashesPerTable || rangePow != cfg.RangePow || maxWeight != cfg.MaxFeatureWeight {
		return State{}, fmt.Errorf("%w: table shape does not match config", ErrCorrupt)
	}
	if numTables > len(r.buf)/8/(k+1) {
		return State{}, r.corrupt()
	}

	tableSeeds := make([]uint64, numTables)
	for i := range tableSeeds {
		tableSeeds[i] = r.u64()
	}
	seeds := make([]uint64, numTables*k)
	for i := range seeds {
		seeds[i] = r.u64()
	}
	hasher, err := lsh.NewHasherFromSeeds(tableSeeds, seeds, k, rangePow, maxWeight)
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	numLabels := r.int()
	if !r.fits(numLabels) {
		return State{}, r.err
	}
	labels := make([]registry.Entry, numLabels)
	for i := range labels {
		labels[i] = registry.Entry{Label: string(r.bytes()), Inserts: r.uvarint()}
	}
	if r.err != nil {
		return State{}, r.err
	}

	bank := lsh.NewWithHasher(hasher, cfg.Stripes, cfg.Workers)
	var entries []lsh.Entry
	for t := range numTables {
		table := bank.Table(t)
		buckets := r.int()
		code := uint64(0)
		for range buckets {
			code += r.uvarint()
			n := r.int()
			if r.err != nil || code > math.MaxUint32 || !r.fits(n) {
				return State{}, r.corrupt()
			}
			entries = entries[:0]
			for range n {
				label, count := r.u32(), r.u32()
				if r.err != nil || int(label) >= numLabels || count == 0 {
					return State{}, r.corrupt()
				}
				entries = append(entries, lsh.Entry{Label: label, Count: count})
			}
			table.Restore(uint32(code), entries)
		}
	}
	if r.err != nil {
		return State{}, r.err
	}
	if len(r.buf) != 0 {
		return State{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf))
	}

	return State{Config: cfg, Labels: labels, Bank: bank}, nil
}

type writer struct {
	buf []byte
}

func (w *writer) uvarint(v uint64) { w.buf = binary.AppendUvarint(w.buf, v) }

func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *writer) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// reader decodes the body. The first failure sticks; later reads return zero.
type reader struct {
	buf []byte
	err error
}

func (r *reader) corrupt() error {
	if r.err == nil {
		r.err = ErrCorrupt
	}
	return r.err
}

// fits reports whether at least n more bytes remain, which bounds every
// allocation by the snapshot size.
func (r *reader) fits(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || n > len(r.buf) {
		r.corrupt()
		return false
	}
	return true
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.corrupt()
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) int() int {
	v, err := conv.Uint64ToInt(r.uvarint())
	if err != nil {
		r.corrupt()
		return 0
	}
	return v
}

func (r *reader) u32() uint32 {
	v, err := conv.Uint64ToUint32(r.uvarint())
	if err != nil {
		r.corrupt()
		return 0
	}
	return v
}

func (r *reader) u64() uint64 {
	if !r.fits(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *reader) bytes() []byte {
	n := r.int()
	if !r.fits(n) {
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}
