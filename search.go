package flash

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/flash/internal/queue"
)

// DefaultTopK is the result size of a query without TopK.
const DefaultTopK = 10

// Prediction is one ranked label.
type Prediction struct {
	Label string `json:"label"`
	// Votes is the number of tables whose query bucket held the label.
	Votes int `json:"votes"`
	// Score is Votes divided by the number of tables.
	Score float64 `json:"score"`
	// Inserts is how often the label was inserted during training.
	Inserts uint64 `json:"inserts"`
}

// Query creates a new fluent query builder for sample.
//
// Example:
//
//	preds, err := idx.Query("usb c charger").
//	    TopK(5).
//	    Labels("electronics", "accessories").
//	    Execute(ctx)
func (f *Flash) Query(sample string) *QueryBuilder {
	return &QueryBuilder{
		f:        f,
		sample:   sample,
		k:        DefaultTopK,
		minVotes: 1,
	}
}

// QueryBuilder is a fluent builder for constructing queries.
type QueryBuilder struct {
	f        *Flash
	sample   string
	k        int
	minVotes int
	labels   []string
}

// TopK sets the maximum number of labels to return.
func (qb *QueryBuilder) TopK(k int) *QueryBuilder {
	qb.k = k
	return qb
}

// MinVotes drops candidates that fewer than n tables agree on.
func (qb *QueryBuilder) MinVotes(n int) *QueryBuilder {
	qb.minVotes = max(n, 1)
	return qb
}

// Labels restricts the result to the given labels. Unknown labels are ignored.
func (qb *QueryBuilder) Labels(labels ...string) *QueryBuilder {
	qb.labels = append(qb.labels, labels...)
	return qb
}

// Execute runs the query. Empty samples, k <= 0 and untrained indexes yield
// an empty result, not an error.
func (qb *QueryBuilder) Execute(ctx context.Context) ([]Prediction, error) {
	start := time.Now()
	preds, err := qb.execute(ctx)
	qb.f.logger.LogPredict(ctx, qb.k, len(preds), err)
	qb.f.metrics.RecordPredict(qb.k, time.Since(start), err)
	return preds, err
}

func (qb *QueryBuilder) execute(ctx context.Context) ([]Prediction, error) {
	f := qb.f
	if f.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if qb.k <= 0 {
		return []Prediction{}, nil
	}

	fs := f.enc.Encode(qb.sample)
	if fs.Empty() {
		return []Prediction{}, nil
	}

	var allow *roaring.Bitmap
	if qb.labels != nil {
		allow = f.labels.Bitmap(qb.labels...)
		if allow.IsEmpty() {
			return []Prediction{}, nil
		}
	}

	votes := f.bank.Candidates(fs, allow)
	top := queue.NewTopK(qb.k)
	for id, v := range votes {
		if int(v) < qb.minVotes {
			continue
		}
		top.Offer(queue.Candidate{Label: id, Votes: v, Inserts: f.labels.Inserts(id)})
	}

	tables := float64(f.bank.NumTables())
	best := top.Drain()
	preds := make([]Prediction, 0, len(best))
	for _, c := range best {
		label, ok := f.labels.Label(c.Label)
		if !ok {
			continue
		}
		preds = append(preds, Prediction{
			Label:   label,
			Votes:   int(c.Votes),
			Score:   float64(c.Votes) / tables,
			Inserts: c.Inserts,
		})
	}
	return preds, nil
}

// PredictSimple returns at most topK labels for sample, best first.
//
// Ties in votes are broken by training frequency and then by first
// appearance, so repeated queries return the same order.
func (f *Flash) PredictSimple(ctx context.Context, sample string, topK int) ([]string, error) {
	preds, err := f.Query(sample).TopK(topK).Execute(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Label
	}
	return out, nil
}
