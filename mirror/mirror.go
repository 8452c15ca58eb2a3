// Package mirror measures where characters of a line would be drawn, the way
// the line widget draws them, without touching the widget itself.
//
// A mirror is shared by every line. Each Measure call configures it from
// scratch and reads the result before another line can reconfigure it.
package mirror

import (
	"errors"

	"gioui.org/font"
	"golang.org/x/image/math/fixed"
)

// ErrNotMeasurable is returned when the mirror cannot produce positions, for
// example before a shaper is attached or when the text size is zero.
var ErrNotMeasurable = errors.New("mirror is not measurable")

// Style replicates the widget properties that affect horizontal positions.
type Style struct {
	Font    font.Font
	PxPerEm fixed.Int26_6
	// PaddingLeft is the left padding of the widget content box, in pixels.
	PaddingLeft float32
}

// Measurement holds the result of one Measure call.
type Measurement struct {
	// Positions are the x offsets of the requested codepoint indices, in
	// the order they were requested. They include the left padding.
	Positions []float32
	// Widths are the rendered widths of the requested contents.
	Widths []float32
}

// Mirror measures text laid out with a Style.
type Mirror interface {
	// Measure lays out text and returns the x offset of each index in
	// indices and the width of each string in contents. Indices past the
	// end of text measure as the end of text.
	Measure(style Style, text string, indices []int, contents []string) (Measurement, error)
}

// boundaries converts per-rune advances into the x offset of every
// codepoint boundary. The result has len(advances)+1 entries.
func boundaries(advances []fixed.Int26_6) []fixed.Int26_6 {
	out := make([]fixed.Int26_6, len(advances)+1)
	for i, adv := range advances {
		out[i+1] = out[i] + adv
	}
	return out
}

func pick(bounds []fixed.Int26_6, indices []int, padding float32) []float32 {
	out := make([]float32, len(indices))
	last := len(bounds) - 1
	for i, idx := range indices {
		idx = min(max(idx, 0), last)
		out[i] = padding + fixedToFloat(bounds[idx])
	}
	return out
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
