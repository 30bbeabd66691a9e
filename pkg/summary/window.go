package summary

import (
	"container/list"
)

// Sample holds the per-shape counts of a single batch.
type Sample map[string]int64

// NewSample counts the occurrences of each shape in batch.
func NewSample(batch []string) Sample {
	s := make(Sample, len(batch))
	for _, shape := range batch {
		s[shape]++
	}
	return s
}

// Window keeps the most recent samples, up to its capacity, and reports
// totals over just those samples.
type Window struct {
	// Oldest sample at the front.
	samples  *list.List
	capacity int
}

// NewWindow creates a window holding at most capacity samples. A capacity
// below one is raised to one; use NewCumulative for an unbounded summary.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		samples:  list.New(),
		capacity: capacity,
	}
}

// Update records batch as a new sample, dropping the oldest sample when the
// window is full, and returns the number of samples retained.
func (w *Window) Update(batch []string) int {
	for w.samples.Len() >= w.capacity {
		w.samples.Remove(w.samples.Front())
	}
	w.samples.PushBack(NewSample(batch))
	return w.samples.Len()
}

// Top sums every retained sample and returns the n most frequent shapes.
func (w *Window) Top(n int) []Entry {
	return rank(w.totals(), n)
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	return w.samples.Len()
}

// Capacity returns the maximum number of retained samples.
func (w *Window) Capacity() int {
	return w.capacity
}

func (w *Window) totals() map[string]int64 {
	totals := make(map[string]int64)
	for e := w.samples.Front(); e != nil; e = e.Next() {
		for shape, count := range e.Value.(Sample) {
			totals[shape] += count
		}
	}
	return totals
}
