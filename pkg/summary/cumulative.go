package summary

// Cumulative counts every shape seen since it was created. It never forgets.
type Cumulative struct {
	counts map[string]int64
}

// NewCumulative creates an empty cumulative summarizer.
func NewCumulative() *Cumulative {
	return &Cumulative{
		counts: make(map[string]int64),
	}
}

// Update adds one to each shape in batch, duplicates included, and returns
// the number of distinct shapes seen so far.
func (c *Cumulative) Update(batch []string) int {
	for _, shape := range batch {
		c.counts[shape]++
	}
	return len(c.counts)
}

// Top returns the n most frequent shapes.
func (c *Cumulative) Top(n int) []Entry {
	return rank(c.counts, n)
}

// Count returns the running total for one shape.
func (c *Cumulative) Count(shape string) int64 {
	return c.counts[shape]
}
