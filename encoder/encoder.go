// Package encoder turns raw text samples into sparse feature sets.
//
// Encoding is pure: the same sample and options always yield the same
// FeatureSet, on every call and in every process. Training and querying must
// use identical options.
package encoder

import (
	"slices"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// Feature namespaces keep a word and an identical character gram apart.
const (
	nsWord   = "w:"
	nsBigram = "b:"
	nsChar   = "c:"
)

// Options configures an Encoder.
type Options struct {
	// FeatureBits sets the feature space to [0, 2^FeatureBits).
	FeatureBits int
	// CharNGram is the character n-gram length (0 disables).
	CharNGram int
	// WordNGram is 1 for unigrams or 2 to add word bigrams.
	WordNGram int
}

// DefaultOptions mirrors the small preset.
var DefaultOptions = Options{
	FeatureBits: 18,
	CharNGram:   4,
	WordNGram:   1,
}

// Feature is a hashed feature identifier with its weight.
type Feature struct {
	ID     uint32
	Weight float32
}

// FeatureSet is an immutable set of features sorted by ID.
type FeatureSet struct {
	features []Feature
}

// Len returns the number of distinct features.
func (fs FeatureSet) Len() int { return len(fs.features) }

// Empty reports whether the set has no features.
func (fs FeatureSet) Empty() bool { return len(fs.features) == 0 }

// At returns the i-th feature in ID order.
func (fs FeatureSet) At(i int) Feature { return fs.features[i] }

// Features returns a copy of the features in ID order.
func (fs FeatureSet) Features() []Feature { return slices.Clone(fs.features) }

// All iterates over the features in ID order.
func (fs FeatureSet) All(yield func(Feature) bool) {
	for _, f := range fs.features {
		if !yield(f) {
			return
		}
	}
}

// NewFeatureSet builds a set from raw IDs; repeated IDs accumulate weight.
func NewFeatureSet(ids ...uint32) FeatureSet {
	counts := make(map[uint32]float32, len(ids))
	for _, id := range ids {
		counts[id]++
	}
	return fromCounts(counts)
}

func fromCounts(counts map[uint32]float32) FeatureSet {
	if len(counts) == 0 {
		return FeatureSet{}
	}
	features := make([]Feature, 0, len(counts))
	for id, w := range counts {
		features = append(features, Feature{ID: id, Weight: w})
	}
	slices.SortFunc(features, func(a, b Feature) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return FeatureSet{features: features}
}

// Encoder converts samples to feature sets. It is safe for concurrent use.
type Encoder struct {
	opts Options
	mask uint64
}

// New creates an Encoder. Out-of-range options fall back to DefaultOptions.
func New(opts Options) *Encoder {
	if opts.FeatureBits <= 0 || opts.FeatureBits > 32 {
		opts.FeatureBits = DefaultOptions.FeatureBits
	}
	if opts.CharNGram < 0 {
		opts.CharNGram = 0
	}
	if opts.WordNGram != 2 {
		opts.WordNGram = 1
	}
	return &Encoder{
		opts: opts,
		mask: (uint64(1) << opts.FeatureBits) - 1,
	}
}

// Options returns the effective options.
func (e *Encoder) Options() Options { return e.opts }

// Encode produces the feature set of sample. Samples without any word yield an
// empty set.
func (e *Encoder) Encode(sample string) FeatureSet {
	tokens := Tokenize(sample)
	if len(tokens) == 0 {
		return FeatureSet{}
	}

	counts := make(map[uint32]float32, len(tokens)*4)
	var sb strings.Builder

	for i, tok := range tokens {
		counts[e.hash(&sb, nsWord, tok)]++

		if e.opts.WordNGram == 2 && i > 0 {
			sb.Reset()
			sb.WriteString(nsBigram)
			sb.WriteString(tokens[i-1])
			sb.WriteByte(' ')
			sb.WriteString(tok)
			counts[e.sum(sb.String())]++
		}

		if e.opts.CharNGram > 0 {
			e.charGrams(&sb, tok, counts)
		}
	}

	return fromCounts(counts)
}

// charGrams adds the boundary-marked character n-grams of word. Words shorter
// than n contribute the whole marked word as one gram.
func (e *Encoder) charGrams(sb *strings.Builder, word string, counts map[uint32]float32) {
	n := e.opts.CharNGram
	runes := make([]rune, 0, len(word)+2)
	runes = append(runes, '^')
	runes = append(runes, []rune(word)...)
	runes = append(runes, '$')

	if len(runes) <= n {
		counts[e.hash(sb, nsChar, string(runes))]++
		return
	}
	for i := 0; i+n <= len(runes); i++ {
		counts[e.hash(sb, nsChar, string(runes[i:i+n]))]++
	}
}

func (e *Encoder) hash(sb *strings.Builder, ns, s string) uint32 {
	sb.Reset()
	sb.WriteString(ns)
	sb.WriteString(s)
	return e.sum(sb.String())
}

func (e *Encoder) sum(s string) uint32 {
	return uint32(xxhash.Sum64String(s) & e.mask)
}

// Tokenize normalizes sample (NFKC, lowercase) and returns its words in order.
// Segments without a letter or digit are dropped.
func Tokenize(sample string) []string {
	if strings.TrimSpace(sample) == "" {
		return nil
	}

	normalized := strings.ToLower(norm.NFKC.String(sample))

	var tokens []string
	segs := words.FromString(normalized)
	for segs.Next() {
		tok := segs.Value()
		if isWord(tok) {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
