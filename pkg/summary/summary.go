// Package summary aggregates normalized query shapes into ranked counts,
// either over the whole run or over a trailing window of samples.
package summary

import (
	"sort"
)

// Entry is one row of a ranked summary.
type Entry struct {
	Shape string `json:"shape"`
	Count int64  `json:"count"`
}

// Summarizer accumulates batches of query shapes.
//
// Update returns a change signature: a cheap scalar that callers compare
// between ticks to guess whether the query mix moved. It is not a content
// hash, and different summaries can share a signature.
type Summarizer interface {
	Update(batch []string) int
	Top(n int) []Entry
}

// New picks the summarizer for a window size. Zero means summarize every
// sample since startup.
func New(window int) Summarizer {
	if window <= 0 {
		return NewCumulative()
	}
	return NewWindow(window)
}

// rank orders counts by descending count, then by shape so equal counts
// come out the same way every time, and keeps the first n.
func rank(counts map[string]int64, n int) []Entry {
	if n <= 0 || len(counts) == 0 {
		return nil
	}

	entries := make([]Entry, 0, len(counts))
	for shape, count := range counts {
		entries = append(entries, Entry{Shape: shape, Count: count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Shape < entries[j].Shape
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
