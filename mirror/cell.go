package mirror

import (
	"sync"

	"github.com/rivo/uniseg"
)

var _ Mirror = (*CellMirror)(nil)

// CellMirror measures text on a fixed grid where every character takes one or
// two cells, as a terminal renders it.
type CellMirror struct {
	// CellWidth is the width of one cell in pixels.
	CellWidth float32

	mu sync.Mutex
}

func (m *CellMirror) Measure(style Style, text string, indices []int, contents []string) (Measurement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CellWidth <= 0 {
		return Measurement{}, ErrNotMeasurable
	}

	runes := []rune(text)
	out := Measurement{Positions: make([]float32, len(indices))}
	for i, idx := range indices {
		idx = min(max(idx, 0), len(runes))
		out.Positions[i] = style.PaddingLeft + float32(uniseg.StringWidth(string(runes[:idx])))*m.CellWidth
	}
	for _, c := range contents {
		out.Widths = append(out.Widths, float32(uniseg.StringWidth(c))*m.CellWidth)
	}
	return out, nil
}
