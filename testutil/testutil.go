package testutil

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/flash/dataset"
	"github.com/hupe1980/flash/encoder"
)

// RNG wraps a seeded random source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 { return r.seed }

// IntN returns a pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Zipf returns a Zipf-distributed index in [0, n) with exponent s.
// Index 0 is the most frequent; real label frequencies follow this shape.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// CorpusOptions shapes a synthetic corpus.
type CorpusOptions struct {
	// Labels is the number of distinct labels.
	Labels int
	// Records is the number of training rows.
	Records int
	// TopicWords is the number of words characteristic for each label.
	TopicWords int
	// SampleWords is the number of words per sample.
	SampleWords int
	// Noise is the share of sample words drawn from a shared vocabulary.
	Noise float64
	// Skew is the Zipf exponent of label frequencies. 0 is uniform.
	Skew float64
}

func (o *CorpusOptions) defaults() {
	if o.Labels <= 0 {
		o.Labels = 10
	}
	if o.Records <= 0 {
		o.Records = 10 * o.Labels
	}
	if o.TopicWords <= 0 {
		o.TopicWords = 8
	}
	if o.SampleWords <= 0 {
		o.SampleWords = 6
	}
}

// Corpus is a generated training set.
type Corpus struct {
	Records []dataset.Record
	topics  [][]string
	noise   []string
	opts    CorpusOptions
	rng     *RNG
}

// Corpus generates records whose samples mostly use the words of their
// label's topic.
func (r *RNG) Corpus(opts CorpusOptions) *Corpus {
	opts.defaults()

	c := &Corpus{opts: opts, rng: r}
	c.topics = make([][]string, opts.Labels)
	for l := range c.topics {
		words := make([]string, opts.TopicWords)
		for w := range words {
			words[w] = fmt.Sprintf("t%dw%d", l, w)
		}
		c.topics[l] = words
	}
	c.noise = make([]string, 4*opts.TopicWords)
	for i := range c.noise {
		c.noise[i] = fmt.Sprintf("common%d", i)
	}

	c.Records = make([]dataset.Record, opts.Records)
	for i := range c.Records {
		var label int
		if opts.Skew > 0 {
			label = r.Zipf(opts.Labels, opts.Skew)
		} else {
			label = i % opts.Labels
		}
		c.Records[i] = dataset.Record{
			Line:   i + 2,
			Sample: c.Sample(label),
			Labels: []string{Label(label)},
		}
	}
	return c
}

// Label returns the name of label i.
func Label(i int) string { return fmt.Sprintf("label-%d", i) }

// Sample draws a fresh sample for label i.
func (c *Corpus) Sample(i int) string {
	r := c.rng
	r.mu.Lock()
	defer r.mu.Unlock()

	words := make([]string, c.opts.SampleWords)
	for w := range words {
		if r.rand.Float64() < c.opts.Noise {
			words[w] = c.noise[r.rand.IntN(len(c.noise))]
		} else {
			words[w] = c.topics[i][r.rand.IntN(len(c.topics[i]))]
		}
	}
	return strings.Join(words, " ")
}

// WriteFile writes the corpus as a CSV file with the columns "text" and
// "label" into a temporary directory and returns its path.
func (c *Corpus) WriteFile(tb testing.TB, name string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		tb.Fatal(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"text", "label"})
	for _, rec := range c.Records {
		_ = w.Write([]string{rec.Sample, strings.Join(rec.Labels, dataset.DefaultLabelDelimiter)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tb.Fatal(err)
	}
	return path
}

// Jaccard returns the weighted Jaccard similarity of two feature sets,
// sum(min) / sum(max) over their weights. It is the exact similarity the
// MinHash tables estimate.
func Jaccard(a, b encoder.FeatureSet) float64 {
	var num, den float64
	i, j := 0, 0
	for i < a.Len() || j < b.Len() {
		switch {
		case j == b.Len() || (i < a.Len() && a.At(i).ID < b.At(j).ID):
			den += float64(a.At(i).Weight)
			i++
		case i == a.Len() || b.At(j).ID < a.At(i).ID:
			den += float64(b.At(j).Weight)
			j++
		default:
			wa, wb := float64(a.At(i).Weight), float64(b.At(j).Weight)
			num += min(wa, wb)
			den += max(wa, wb)
			i++
			j++
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// ComputeRecall returns the share of truth found in predicted.
func ComputeRecall(truth, predicted []string) float64 {
	if len(truth) == 0 {
		return 1.0
	}
	set := make(map[string]struct{}, len(predicted))
	for _, p := range predicted {
		set[p] = struct{}{}
	}
	hits := 0
	for _, t := range truth {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
