package textsync

// Event is an input event posted by a line widget. Offsets carried by events
// are in UTF-16 code units, the widget's native unit, and relative to the
// widget value at the time the event was posted.
type Event interface {
	isEvent()
}

// UTF16Range is a range of UTF-16 code units. Start may be after End.
type UTF16Range struct {
	Start int
	End   int
}

func (r UTF16Range) sorted() (int, int) {
	return min(r.Start, r.End), max(r.Start, r.End)
}

// EditEvent replaces Range of the widget value with Text.
type EditEvent struct {
	Range UTF16Range
	Text  string
}

// SelectionEvent reports a native selection change.
type SelectionEvent struct {
	Anchor int
	Head   int
}

// CompositionStartEvent signals that the platform started assembling input,
// for example an accented character or an IME candidate.
type CompositionStartEvent struct{}

// CompositionUpdateEvent carries the provisional text of a composition.
type CompositionUpdateEvent struct {
	Text string
}

// CompositionEndEvent carries the finalized text of a composition. An empty
// Text commits the last provisional text.
type CompositionEndEvent struct {
	Text string
}

// KeyEvent is a navigation key taken over by the controller, see
// EventSink.HandleKey.
type KeyEvent struct {
	Key Key
}

// FocusEvent reports that the user moved focus to or away from a widget.
type FocusEvent struct {
	Focused bool
}

// ScrollEvent reports the horizontal scroll offset of a widget.
type ScrollEvent struct {
	X float32
}

func (EditEvent) isEvent()              {}
func (SelectionEvent) isEvent()         {}
func (CompositionStartEvent) isEvent()  {}
func (CompositionUpdateEvent) isEvent() {}
func (CompositionEndEvent) isEvent()    {}
func (KeyEvent) isEvent()               {}
func (FocusEvent) isEvent()             {}
func (ScrollEvent) isEvent()            {}

// Key is a key with a meaning across line boundaries.
type Key uint8

const (
	KeyEnter Key = iota + 1
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

func (k Key) String() string {
	switch k {
	case KeyEnter:
		return "Enter"
	case KeyBackspace:
		return "Backspace"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	}
	return "Unknown"
}

func eventName(ev Event) string {
	switch ev := ev.(type) {
	case EditEvent:
		return "edit"
	case SelectionEvent:
		return "selection"
	case CompositionStartEvent:
		return "compositionstart"
	case CompositionUpdateEvent:
		return "compositionupdate"
	case CompositionEndEvent:
		return "compositionend"
	case KeyEvent:
		return "key " + ev.Key.String()
	case FocusEvent:
		return "focus"
	case ScrollEvent:
		return "scroll"
	}
	return "unknown"
}
