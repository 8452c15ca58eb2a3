package mirror

import (
	"math"
	"sync"

	"gioui.org/text"
	"golang.org/x/image/math/fixed"
)

var _ Mirror = (*ShaperMirror)(nil)

// ShaperMirror measures with the same text.Shaper the widget paints with.
type ShaperMirror struct {
	mu       sync.Mutex
	shaper   *text.Shaper
	params   text.Parameters
	advances []fixed.Int26_6
}

func NewShaperMirror(shaper *text.Shaper) *ShaperMirror {
	return &ShaperMirror{shaper: shaper}
}

// Attach replaces the shaper used for measuring.
func (m *ShaperMirror) Attach(shaper *text.Shaper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shaper = shaper
}

func (m *ShaperMirror) Measure(style Style, txt string, indices []int, contents []string) (Measurement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shaper == nil || style.PxPerEm <= 0 {
		return Measurement{}, ErrNotMeasurable
	}

	m.configure(style)

	out := Measurement{
		Positions: pick(boundaries(m.layout(txt)), indices, style.PaddingLeft),
	}
	for _, c := range contents {
		b := boundaries(m.layout(c))
		out.Widths = append(out.Widths, fixedToFloat(b[len(b)-1]))
	}
	return out, nil
}

func (m *ShaperMirror) configure(style Style) {
	m.params = text.Parameters{
		Font:     style.Font,
		PxPerEm:  style.PxPerEm,
		MaxWidth: math.MaxInt,
	}
}

// layout shapes s and returns the advance of every rune. The advance of a
// glyph cluster is spread evenly over the runes it covers.
func (m *ShaperMirror) layout(s string) []fixed.Int26_6 {
	n := len([]rune(s))
	m.advances = m.advances[:0]
	m.shaper.LayoutString(m.params, s)

	var clusterAdvance fixed.Int26_6
	for {
		g, ok := m.shaper.NextGlyph()
		if !ok {
			break
		}
		clusterAdvance += g.Advance
		if g.Flags&text.FlagClusterBreak == 0 || g.Runes == 0 {
			continue
		}
		runes := fixed.Int26_6(g.Runes)
		per := clusterAdvance / runes
		for i := fixed.Int26_6(0); i < runes; i++ {
			adv := per
			if i == runes-1 {
				adv = clusterAdvance - per*(runes-1)
			}
			m.advances = append(m.advances, adv)
		}
		clusterAdvance = 0
	}

	// The shaper may drop trailing control runes.
	for len(m.advances) < n {
		m.advances = append(m.advances, 0)
	}
	return m.advances[:n]
}
