// Package painter paints a single shaped line of text with its selection and
// caret.
package painter

import (
	"image"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"golang.org/x/image/math/fixed"
)

// TextPainter computes the bounding box of and paints one line of glyphs.
type TextPainter struct {
	// padding is the space needed outside of the bounds of the text to ensure no
	// part of a glyph is clipped.
	padding image.Rectangle
}

// Reset clears the padding gathered from the previous layout.
func (tp *TextPainter) Reset() {
	tp.padding = image.Rectangle{}
}

// Padding returns the overhang of the glyphs seen since Reset.
func (tp *TextPainter) Padding() image.Rectangle {
	return tp.padding
}

// Glyph grows the padding to include the overhang of g.
func (tp *TextPainter) Glyph(g text.Glyph) {
	if d := g.Bounds.Min.X.Floor(); d < tp.padding.Min.X {
		tp.padding.Min.X = d
	}
	if d := (g.Bounds.Max.X - g.Advance).Ceil(); d > tp.padding.Max.X {
		tp.padding.Max.X = d
	}
	if d := (g.Bounds.Min.Y + g.Ascent).Floor(); d < tp.padding.Min.Y {
		tp.padding.Min.Y = d
	}
	if d := (g.Bounds.Max.Y - g.Descent).Ceil(); d > tp.padding.Max.Y {
		tp.padding.Max.Y = d
	}
}

// PaintText paints glyphs shifted left by scrollX and clipped to viewport.
func (tp *TextPainter) PaintText(gtx layout.Context, shaper *text.Shaper, glyphs []text.Glyph, scrollX int,
	viewport image.Rectangle, material op.CallOp) {
	if len(glyphs) == 0 {
		return
	}
	m := op.Record(gtx.Ops)
	off := op.Affine(f32.Affine2D{}.Offset(f32.Point{X: -float32(scrollX)})).Push(gtx.Ops)
	path := shaper.Shape(glyphs)
	outline := clip.Outline{Path: path}.Op().Push(gtx.Ops)
	material.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
	outline.Pop()
	if call := shaper.Bitmaps(glyphs); call != (op.CallOp{}) {
		call.Add(gtx.Ops)
	}
	off.Pop()
	call := m.Stop()

	viewport.Min = viewport.Min.Add(tp.padding.Min)
	viewport.Max = viewport.Max.Add(tp.padding.Max)
	defer clip.Rect(viewport).Push(gtx.Ops).Pop()
	call.Add(gtx.Ops)
}

// PaintRect fills rect, clipped to viewport.
func (tp *TextPainter) PaintRect(gtx layout.Context, rect, viewport image.Rectangle, material op.CallOp) {
	rect = rect.Intersect(viewport)
	if rect.Empty() {
		return
	}
	defer clip.Rect(rect).Push(gtx.Ops).Pop()
	material.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
}

// Material records a solid color fill.
func Material(ops *op.Ops, c paint.ColorOp) op.CallOp {
	m := op.Record(ops)
	c.Add(ops)
	return m.Stop()
}

func FixedToFloat(i fixed.Int26_6) float32 {
	return float32(i) / 64.0
}
