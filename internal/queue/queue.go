// Package queue provides the bounded heap used to select the top-k candidates.
package queue

import "container/heap"

// Compile time check to ensure TopK satisfies the heap interface.
var _ heap.Interface = (*TopK)(nil)

// Candidate is a label scored by the query engine.
type Candidate struct {
	Label   uint32 // Label is the label ID.
	Votes   uint32 // Votes is the number of tables that agreed.
	Inserts uint64 // Inserts is the label's total training insertions.
}

// Better reports whether a ranks before b: more votes first, then more
// training insertions, then the lower (earlier minted) label ID.
func Better(a, b Candidate) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	if a.Inserts != b.Inserts {
		return a.Inserts > b.Inserts
	}
	return a.Label < b.Label
}

// TopK keeps the k best candidates seen so far. The root of the heap is the
// worst kept candidate, so each offer costs O(log k).
type TopK struct {
	k     int
	items []Candidate
}

// NewTopK creates a selector for k candidates.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{
		k:     k,
		items: make([]Candidate, 0, min(k, 1024)),
	}
}

// Offer considers c for inclusion.
func (q *TopK) Offer(c Candidate) {
	if q.k == 0 {
		return
	}
	if len(q.items) < q.k {
		q.items = append(q.items, c)
		q.siftUp(len(q.items) - 1)
		return
	}
	if Better(c, q.items[0]) {
		q.items[0] = c
		q.siftDown(0)
	}
}

// Drain returns the kept candidates best first and empties the selector.
func (q *TopK) Drain() []Candidate {
	out := make([]Candidate, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(q).(Candidate)
	}
	return out
}

// Len returns the number of elements in the heap.
func (q *TopK) Len() int { return len(q.items) }

// Less orders the worst candidate to the root.
func (q *TopK) Less(i, j int) bool { return Better(q.items[j], q.items[i]) }

// Swap swaps the elements with indexes i and j.
func (q *TopK) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

// Push adds x to the heap.
func (q *TopK) Push(x any) { q.items = append(q.items, x.(Candidate)) }

// Pop removes and returns the last element.
func (q *TopK) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = Candidate{}
	q.items = q.items[:n-1]
	return item
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.Less(i, p) {
			return
		}
		q.Swap(i, p)
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && q.Less(r, l) {
			worst = r
		}
		if !q.Less(worst, i) {
			return
		}
		q.Swap(i, worst)
		i = worst
	}
}
