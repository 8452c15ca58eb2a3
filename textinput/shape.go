package textinput

import (
	"math"

	"gioui.org/font"
	"gioui.org/text"
	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/internal/painter"
	"golang.org/x/image/math/fixed"
)

// shapedLine caches the glyphs of the text of a LineInput.
type shapedLine struct {
	valid  bool
	font   font.Font
	size   fixed.Int26_6
	glyphs []text.Glyph
	// xs holds the x offset of every codepoint boundary, so len(xs) is the
	// rune count plus one.
	xs      []fixed.Int26_6
	ascent  fixed.Int26_6
	descent fixed.Int26_6
}

func (l *shapedLine) invalidate() {
	l.valid = false
}

// shape lays out s unless the cached glyphs already match.
func (l *shapedLine) shape(shaper *text.Shaper, f font.Font, size fixed.Int26_6, s string, p *painter.TextPainter) {
	if l.valid && l.font == f && l.size == size {
		return
	}
	l.valid, l.font, l.size = true, f, size
	l.glyphs = l.glyphs[:0]
	l.xs = append(l.xs[:0], 0)
	l.ascent, l.descent = 0, 0
	p.Reset()

	params := text.Parameters{Font: f, PxPerEm: size, MaxWidth: math.MaxInt, MaxLines: 1}
	shaper.LayoutString(params, s)

	var x, clusterStart fixed.Int26_6
	for {
		g, ok := shaper.NextGlyph()
		if !ok {
			break
		}
		l.glyphs = append(l.glyphs, g)
		p.Glyph(g)
		l.ascent = max(l.ascent, g.Ascent)
		l.descent = max(l.descent, g.Descent)
		x = g.X + g.Advance

		if g.Flags&text.FlagClusterBreak == 0 || g.Runes == 0 {
			continue
		}
		// Spread the cluster advance over its runes.
		runes := fixed.Int26_6(g.Runes)
		per := (x - clusterStart) / runes
		for i := fixed.Int26_6(1); i < runes; i++ {
			l.xs = append(l.xs, clusterStart+per*i)
		}
		l.xs = append(l.xs, x)
		clusterStart = x
	}

	// The shaper may drop trailing control runes.
	for n := len([]rune(s)) + 1; len(l.xs) < n; {
		l.xs = append(l.xs, x)
	}
}

func (l *shapedLine) width() fixed.Int26_6 {
	return l.xs[len(l.xs)-1]
}

// x returns the offset of a UTF-16 position of s.
func (l *shapedLine) x(s string, u int) fixed.Int26_6 {
	cp := buffer.UTF16ToCodepoint(s, u)
	return l.xs[min(cp, len(l.xs)-1)]
}

// closest returns the UTF-16 position of s nearest to x.
func (l *shapedLine) closest(s string, x fixed.Int26_6) int {
	best, dist := 0, fixed.Int26_6(math.MaxInt32)
	for cp, bx := range l.xs {
		d := bx - x
		if d < 0 {
			d = -d
		}
		if d < dist {
			best, dist = cp, d
		}
	}
	return buffer.CodepointToUTF16(s, best)
}
