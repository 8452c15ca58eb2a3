package textinput

import (
	"image"
	"math"
	"time"

	"gioui.org/font"
	"gioui.org/gesture"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/semantic"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/text"
	"gioui.org/unit"
	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/internal/painter"
	"golang.org/x/image/math/fixed"
)

const (
	blinksPerSecond  = 1
	maxBlinkDuration = 10 * time.Second
)

// Update processes the input events of the input. Call it, or Layout, once
// per frame before the controller's Update.
func (in *LineInput) Update(gtx layout.Context) {
	if in.requestFocus {
		gtx.Execute(key.FocusCmd{Tag: in})
		in.requestFocus = false
	}

	in.processPointer(gtx)
	in.processKey(gtx)
}

func (in *LineInput) processPointer(gtx layout.Context) {
	for {
		evt, ok := in.clicker.Update(gtx.Source)
		if !ok {
			break
		}
		if !(evt.Kind == gesture.KindPress && evt.Source == pointer.Mouse ||
			evt.Kind == gesture.KindClick && evt.Source != pointer.Mouse) {
			continue
		}
		in.blinkStart = gtx.Now
		x := fixed.I(int(math.Round(float64(evt.Position.X))) + in.scrollX)
		head := in.bounds.snap(in.line.closest(in.value, x))
		anchor := head
		if evt.Modifiers.Contain(key.ModShift) {
			anchor = in.anchor
		}
		in.selectRange(anchor, head)
		if !gtx.Focused(in) {
			gtx.Execute(key.FocusCmd{Tag: in})
		}
	}

	if !in.line.valid {
		return
	}
	maxScroll := max(in.line.width().Ceil()-gtx.Constraints.Max.X, 0)
	dist := in.scroller.Update(gtx.Metric, gtx.Source, gtx.Now, gesture.Horizontal,
		pointer.ScrollRange{Min: -in.scrollX, Max: maxScroll - in.scrollX}, pointer.ScrollRange{})
	if dist != 0 {
		in.scrollTo(min(in.scrollX+dist, maxScroll))
	}
}

func (in *LineInput) processKey(gtx layout.Context) {
	filters := []event.Filter{
		key.FocusFilter{Target: in},
		key.Filter{Focus: in, Name: key.NameEnter, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameReturn, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameDeleteBackward, Optional: key.ModShortcutAlt | key.ModShift},
		key.Filter{Focus: in, Name: key.NameDeleteForward, Optional: key.ModShortcutAlt | key.ModShift},
		key.Filter{Focus: in, Name: key.NameUpArrow, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameDownArrow, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameLeftArrow, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameRightArrow, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameHome, Optional: key.ModShift},
		key.Filter{Focus: in, Name: key.NameEnd, Optional: key.ModShift},
	}

	for {
		ke, ok := gtx.Event(filters...)
		if !ok {
			break
		}
		in.blinkStart = gtx.Now

		switch ke := ke.(type) {
		case key.FocusEvent:
			in.focus(ke.Focus)
		case key.Event:
			if !in.focused || ke.State != key.Press {
				break
			}
			in.command(ke.Name, ke.Modifiers)
		case key.SnippetEvent:
			in.updateSnippet(gtx, ke.Start, ke.End)
		case key.EditEvent:
			in.edit(ke)
		case key.SelectionEvent:
			in.imeSelect(key.Range(ke))
		}
	}
}

// updateSnippet reports the text around the caret to the input method. start
// and end are in runes.
func (in *LineInput) updateSnippet(gtx layout.Context, start, end int) {
	runes := []rune(in.value)
	lo := min(max(min(start, end), 0), len(runes))
	hi := min(max(start, end, lo), len(runes))
	snip := key.Snippet{
		Range: key.Range{Start: lo, End: hi},
		Text:  string(runes[lo:hi]),
	}
	if snip == in.ime.snippet {
		return
	}
	in.ime.snippet = snip
	gtx.Execute(key.SnippetCmd{Tag: in, Snippet: snip})
}

// syncIME tells the input method about the selection.
func (in *LineInput) syncIME(gtx layout.Context, caret image.Point) {
	rng := key.Range{
		Start: buffer.UTF16ToCodepoint(in.value, in.anchor),
		End:   buffer.UTF16ToCodepoint(in.value, in.head),
	}
	c := key.Caret{
		Pos:     layout.FPt(caret),
		Ascent:  painter.FixedToFloat(in.line.ascent),
		Descent: painter.FixedToFloat(in.line.descent),
	}
	if rng != in.ime.selection || c != in.ime.caret {
		in.ime.selection, in.ime.caret = rng, c
		gtx.Execute(key.SelectionCmd{Tag: in, Range: rng, Caret: c})
	}
	in.updateSnippet(gtx, 0, len([]rune(in.value)))
}

// Layout processes events and paints the input. textMaterial fills the glyphs
// and the caret, selectMaterial the selection.
func (in *LineInput) Layout(gtx layout.Context, shaper *text.Shaper, f font.Font, size unit.Sp,
	textMaterial, selectMaterial op.CallOp) layout.Dimensions {
	in.Update(gtx)
	in.line.shape(shaper, f, fixed.I(gtx.Sp(size)), in.value, &in.painter)

	ascent, descent := in.line.ascent.Ceil(), in.line.descent.Ceil()
	height := ascent + descent
	if height == 0 {
		height = gtx.Sp(size)
		ascent = height * 4 / 5
	}
	dims := layout.Dimensions{
		Size:     gtx.Constraints.Constrain(image.Point{X: gtx.Constraints.Max.X, Y: height}),
		Baseline: descent,
	}

	caretX := in.line.x(in.value, in.head).Round()
	if in.scrollCaret {
		in.scrollCaret = false
		switch {
		case caretX < in.scrollX:
			in.scrollTo(caretX)
		case caretX > in.scrollX+dims.Size.X-gtx.Dp(1):
			in.scrollTo(caretX - dims.Size.X + gtx.Dp(1))
		}
	}
	caret := image.Point{X: caretX - in.scrollX, Y: ascent}
	if gtx.Focused(in) {
		in.syncIME(gtx, caret)
	}

	viewport := image.Rectangle{Max: dims.Size}
	defer clip.Rect(viewport).Push(gtx.Ops).Pop()
	pointer.CursorText.Add(gtx.Ops)
	event.Op(gtx.Ops, in)
	key.InputHintOp{Tag: in, Hint: in.InputHint}.Add(gtx.Ops)
	in.clicker.Add(gtx.Ops)
	in.scroller.Add(gtx.Ops)
	semantic.Editor.Add(gtx.Ops)

	if in.anchor != in.head {
		x0 := in.line.x(in.value, min(in.anchor, in.head)).Floor() - in.scrollX
		x1 := in.line.x(in.value, max(in.anchor, in.head)).Ceil() - in.scrollX
		in.painter.PaintRect(gtx, image.Rect(x0, 0, x1, height), viewport, selectMaterial)
	}

	// Glyph coordinates are relative to the top of the line.
	in.painter.PaintText(gtx, shaper, in.line.glyphs, in.scrollX, viewport, textMaterial)

	if in.showCaret(gtx) {
		w := max(gtx.Dp(unit.Dp(1)), 1)
		in.painter.PaintRect(gtx, image.Rect(caret.X, 0, caret.X+w, height), viewport, textMaterial)
	}
	return dims
}

func (in *LineInput) showCaret(gtx layout.Context) bool {
	if !gtx.Focused(in) || !gtx.Enabled() {
		return false
	}
	dt := gtx.Now.Sub(in.blinkStart)
	blinking := dt < maxBlinkDuration
	const timePerBlink = time.Second / blinksPerSecond
	if blinking {
		gtx.Execute(op.InvalidateCmd{At: gtx.Now.Add(timePerBlink/2 - dt%(timePerBlink/2))})
	}
	return !blinking || dt%timePerBlink < timePerBlink/2
}
