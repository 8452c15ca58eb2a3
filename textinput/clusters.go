package textinput

import (
	"sort"

	"github.com/go-text/typesetting/segmenter"
	"github.com/oligo/textsync/buffer"
)

// clusters indexes the grapheme cluster boundaries of a line, in UTF-16 code
// units. Caret movement and deletion step over whole clusters.
type clusters struct {
	seg    segmenter.Segmenter
	bounds []int
}

func (c *clusters) reset(s string) {
	c.bounds = append(c.bounds[:0], 0)
	if s == "" {
		return
	}

	runes := []rune(s)
	c.seg.Init(runes)
	iter := c.seg.GraphemeIterator()
	for iter.Next() {
		g := iter.Grapheme()
		end := g.Offset + len(g.Text)
		c.bounds = append(c.bounds, buffer.CodepointToUTF16(s, end))
	}
}

// prev returns the boundary before u, or 0.
func (c *clusters) prev(u int) int {
	i := sort.SearchInts(c.bounds, u)
	if i == 0 {
		return 0
	}
	return c.bounds[i-1]
}

// next returns the boundary after u, or the end of the line.
func (c *clusters) next(u int) int {
	i := sort.Search(len(c.bounds), func(i int) bool { return c.bounds[i] > u })
	if i == len(c.bounds) {
		return c.bounds[len(c.bounds)-1]
	}
	return c.bounds[i]
}

// snap returns the boundary nearest to u.
func (c *clusters) snap(u int) int {
	i := sort.SearchInts(c.bounds, u)
	switch {
	case i == len(c.bounds):
		return c.bounds[len(c.bounds)-1]
	case c.bounds[i] == u || i == 0:
		return c.bounds[i]
	}
	if u-c.bounds[i-1] <= c.bounds[i]-u {
		return c.bounds[i-1]
	}
	return c.bounds[i]
}
