// Package textinput provides a single-line Gio text input that never edits its
// own text. Input is reported to a textsync.EventSink, and the text shown is
// whatever the sink sets.
package textinput

import (
	"strings"
	"time"

	"gioui.org/gesture"
	"gioui.org/io/key"
	"github.com/oligo/textsync"
	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/internal/painter"
)

var _ textsync.Widget = (*LineInput)(nil)

// LineInput is a single-line text input. Offsets of its API are UTF-16 code
// units; Gio reports runes, which are converted at the boundary.
type LineInput struct {
	// InputHint specifies the type of on-screen keyboard to be displayed.
	InputHint key.InputHint

	sink   textsync.EventSink
	value  string
	anchor int
	head   int
	bounds clusters

	focused      bool
	requestFocus bool
	blinkStart   time.Time

	clicker     gesture.Click
	scroller    gesture.Scroll
	scrollX     int
	scrollCaret bool

	line    shapedLine
	painter painter.TextPainter

	// ime tracks the state reported to input methods.
	ime struct {
		selection key.Range
		caret     key.Caret
		snippet   key.Snippet
	}
}

// New creates an input reporting to sink. It is a textsync.WidgetFactory.
func New(sink textsync.EventSink) textsync.Widget {
	in := &LineInput{sink: sink}
	in.bounds.reset("")
	return in
}

func (in *LineInput) Value() string {
	return in.value
}

// SetValue replaces the text. The selection is clamped to the new text.
func (in *LineInput) SetValue(s string) {
	if s == in.value {
		return
	}
	in.value = s
	in.bounds.reset(s)
	in.line.invalidate()
	n := buffer.UTF16Len(s)
	in.anchor = min(in.anchor, n)
	in.head = min(in.head, n)
}

func (in *LineInput) Selection() (anchor, head int) {
	return in.anchor, in.head
}

func (in *LineInput) SetSelection(anchor, head int) {
	n := buffer.UTF16Len(in.value)
	in.anchor = min(max(anchor, 0), n)
	in.head = min(max(head, 0), n)
	in.scrollCaret = true
}

// Focus requests the keyboard focus at the next frame.
func (in *LineInput) Focus() {
	in.requestFocus = true
	in.focused = true
}

// Focused reports whether the input has the keyboard focus.
func (in *LineInput) Focused() bool {
	return in.focused
}

// StartComposition, UpdateComposition and EndComposition report a composition
// sequence of platforms that expose one.
func (in *LineInput) StartComposition() error {
	return in.sink.Post(textsync.CompositionStartEvent{})
}

func (in *LineInput) UpdateComposition(text string) error {
	return in.sink.Post(textsync.CompositionUpdateEvent{Text: text})
}

func (in *LineInput) EndComposition(text string) error {
	return in.sink.Post(textsync.CompositionEndEvent{Text: text})
}

func (in *LineInput) post(ev textsync.Event) {
	// Rejected events are logged by the sink.
	_ = in.sink.Post(ev)
}

func (in *LineInput) selectRange(anchor, head int) {
	in.SetSelection(anchor, head)
	in.post(textsync.SelectionEvent{Anchor: in.anchor, Head: in.head})
}

// command handles a key press that is not text input.
func (in *LineInput) command(name key.Name, mods key.Modifiers) {
	extend := mods.Contain(key.ModShift)
	start, end := min(in.anchor, in.head), max(in.anchor, in.head)

	switch name {
	case key.NameReturn, key.NameEnter:
		in.sink.HandleKey(textsync.KeyEnter)
	case key.NameDeleteBackward:
		if in.sink.HandleKey(textsync.KeyBackspace) {
			return
		}
		if start == end {
			start = in.bounds.prev(start)
		}
		in.delete(start, end)
	case key.NameDeleteForward:
		if start == end {
			end = in.bounds.next(end)
		}
		in.delete(start, end)
	case key.NameUpArrow:
		in.sink.HandleKey(textsync.KeyUp)
	case key.NameDownArrow:
		in.sink.HandleKey(textsync.KeyDown)
	case key.NameLeftArrow:
		if !extend && in.sink.HandleKey(textsync.KeyLeft) {
			return
		}
		in.move(-1, extend)
	case key.NameRightArrow:
		if !extend && in.sink.HandleKey(textsync.KeyRight) {
			return
		}
		in.move(1, extend)
	case key.NameHome:
		in.moveTo(0, extend)
	case key.NameEnd:
		in.moveTo(buffer.UTF16Len(in.value), extend)
	}
}

func (in *LineInput) delete(start, end int) {
	if start == end {
		return
	}
	in.post(textsync.EditEvent{Range: textsync.UTF16Range{Start: start, End: end}})
}

// move steps the caret by one grapheme cluster in dir. A selection collapses
// to its edge instead when it is not extended.
func (in *LineInput) move(dir int, extend bool) {
	if !extend && in.anchor != in.head {
		edge := min(in.anchor, in.head)
		if dir > 0 {
			edge = max(in.anchor, in.head)
		}
		in.selectRange(edge, edge)
		return
	}

	head := in.bounds.prev(in.head)
	if dir > 0 {
		head = in.bounds.next(in.head)
	}
	in.moveTo(head, extend)
}

func (in *LineInput) moveTo(head int, extend bool) {
	anchor := head
	if extend {
		anchor = in.anchor
	}
	in.selectRange(anchor, head)
}

// edit reports input of the platform. Gio counts the range in runes.
func (in *LineInput) edit(ke key.EditEvent) {
	s := ke.Text
	newline := strings.ContainsAny(s, "\r\n")
	if newline {
		s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	}

	start := buffer.CodepointToUTF16(in.value, min(ke.Range.Start, ke.Range.End))
	end := buffer.CodepointToUTF16(in.value, max(ke.Range.Start, ke.Range.End))
	if s != "" || start != end {
		in.post(textsync.EditEvent{Range: textsync.UTF16Range{Start: start, End: end}, Text: s})
	}
	if newline {
		in.sink.HandleKey(textsync.KeyEnter)
	}
}

// imeSelect applies a selection set by the input method.
func (in *LineInput) imeSelect(rng key.Range) {
	anchor := buffer.CodepointToUTF16(in.value, rng.Start)
	head := buffer.CodepointToUTF16(in.value, rng.End)
	in.selectRange(anchor, head)
}

// focus records a focus change made by the platform.
func (in *LineInput) focus(focused bool) {
	if focused == in.focused {
		return
	}
	in.focused = focused
	in.ime.selection = key.Range{}
	in.ime.snippet = key.Snippet{}
	in.post(textsync.FocusEvent{Focused: focused})
}

// scrollTo sets the horizontal scroll offset and reports it.
func (in *LineInput) scrollTo(x int) {
	x = max(x, 0)
	if x == in.scrollX {
		return
	}
	in.scrollX = x
	in.post(textsync.ScrollEvent{X: float32(x)})
}
