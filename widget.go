package textsync

import (
	"github.com/oligo/textsync/buffer"
)

// Widget is a single-line text input the controller keeps in sync with the
// engine. Offsets are UTF-16 code units.
//
// A widget does not apply edits to its own value: it posts them to its
// EventSink and shows whatever the controller sets.
type Widget interface {
	Value() string
	SetValue(s string)
	// Selection returns the anchor and head of the native selection.
	Selection() (anchor, head int)
	SetSelection(anchor, head int)
	// Focus gives the widget keyboard focus. It must not post a FocusEvent.
	Focus()
}

// EventSink receives the events of one widget. It is bound to the widget,
// not to a line index, so events follow the widget when lines are inserted
// or removed.
type EventSink interface {
	// Post queues an event. Composition events out of order are rejected
	// with ErrIllegalTransition.
	Post(ev Event) error
	// HandleKey reports whether the controller takes over k at the current
	// caret position. A taken key must not be processed by the widget.
	HandleKey(k Key) bool
}

// WidgetFactory creates the widget for a new line.
type WidgetFactory func(sink EventSink) Widget

var _ Widget = (*MemWidget)(nil)

// MemWidget is a widget without a user interface. It is useful for headless
// use of the controller and for tests.
type MemWidget struct {
	sink    EventSink
	value   string
	anchor  int
	head    int
	focused bool
}

// NewMemWidget is a WidgetFactory.
func NewMemWidget(sink EventSink) Widget {
	return &MemWidget{sink: sink}
}

func (w *MemWidget) Value() string {
	return w.value
}

func (w *MemWidget) SetValue(s string) {
	w.value = s
	n := buffer.UTF16Len(s)
	w.anchor = min(w.anchor, n)
	w.head = min(w.head, n)
}

func (w *MemWidget) Selection() (int, int) {
	return w.anchor, w.head
}

func (w *MemWidget) SetSelection(anchor, head int) {
	n := buffer.UTF16Len(w.value)
	w.anchor = min(max(anchor, 0), n)
	w.head = min(max(head, 0), n)
}

func (w *MemWidget) Focus() {
	w.focused = true
}

// Focused reports whether Focus or Click was called.
func (w *MemWidget) Focused() bool {
	return w.focused
}

// Click focuses the widget the way a user would.
func (w *MemWidget) Click() error {
	w.focused = true
	return w.sink.Post(FocusEvent{Focused: true})
}

// Type replaces the selection with text.
func (w *MemWidget) Type(text string) error {
	return w.sink.Post(EditEvent{Range: UTF16Range{Start: w.anchor, End: w.head}, Text: text})
}

// Select moves the native selection and reports it.
func (w *MemWidget) Select(anchor, head int) error {
	w.SetSelection(anchor, head)
	return w.sink.Post(SelectionEvent{Anchor: w.anchor, Head: w.head})
}

// Press handles a key the way a native input does: the controller gets the
// first chance to take it, otherwise the widget edits or moves the caret.
func (w *MemWidget) Press(k Key) error {
	if w.sink.HandleKey(k) {
		return nil
	}

	start, end := min(w.anchor, w.head), max(w.anchor, w.head)
	switch k {
	case KeyBackspace:
		if start == end {
			if start == 0 {
				return nil
			}
			start = w.prevBoundary(start)
		}
		return w.sink.Post(EditEvent{Range: UTF16Range{Start: start, End: end}})
	case KeyLeft:
		if start == end {
			start = w.prevBoundary(start)
		}
		return w.Select(start, start)
	case KeyRight:
		if start == end {
			end = w.nextBoundary(end)
		}
		return w.Select(end, end)
	}
	return nil
}

func (w *MemWidget) prevBoundary(u int) int {
	cp := buffer.UTF16ToCodepoint(w.value, u)
	if buffer.CodepointToUTF16(w.value, cp) == u {
		cp--
	}
	return buffer.CodepointToUTF16(w.value, max(cp, 0))
}

func (w *MemWidget) nextBoundary(u int) int {
	cp := buffer.UTF16ToCodepoint(w.value, u)
	return buffer.CodepointToUTF16(w.value, cp+1)
}

// StartComposition, UpdateComposition and EndComposition replay a platform
// composition sequence.
func (w *MemWidget) StartComposition() error {
	return w.sink.Post(CompositionStartEvent{})
}

func (w *MemWidget) UpdateComposition(text string) error {
	return w.sink.Post(CompositionUpdateEvent{Text: text})
}

func (w *MemWidget) EndComposition(text string) error {
	return w.sink.Post(CompositionEndEvent{Text: text})
}
