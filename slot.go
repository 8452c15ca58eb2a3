package textsync

import (
	"fmt"
	"unicode/utf8"

	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/overlay"
	"golang.org/x/text/unicode/norm"
)

// slot is the registry entry of one line. Its identity is stable while its
// index in the document changes with splits and joins.
type slot struct {
	c      *Controller
	widget Widget
	// buf holds the text last confirmed by the engine.
	buf   *buffer.Line
	phase State
	// composing tracks whether the events posted so far leave the line in a
	// composition. comp buffers that composition.
	composing bool
	comp      composition
	// pending are the edits sent or queued that the widget does not show.
	pending []pendingEdit
	// busy is set while a request for the line is in flight.
	busy bool
	// removed is set once a join removed the line.
	removed bool

	anchors []engine.OverlayAnchor
	layer   overlay.Layer
	role    engine.Role
	roleGen uint64
	label   string
}

var _ EventSink = (*slot)(nil)

// task is a queued event with the widget state captured when it was posted.
type task struct {
	slot *slot
	ev   Event
	// before is the widget value when the event was posted.
	before string
	// start and end are the codepoint range replaced by an edit, or the
	// anchor and head of a selection. Pending edits are accounted for.
	start int
	end   int
	text  string
}

// edits reports whether t changes the text of its line.
func (t *task) edits() bool {
	switch t.ev.(type) {
	case EditEvent, CompositionEndEvent:
		return t.text != "" || t.start != t.end
	}
	return false
}

func (t *task) structural() bool {
	k, ok := t.ev.(KeyEvent)
	return ok && (k.Key == KeyEnter || k.Key == KeyBackspace)
}

func (s *slot) transition(to State) {
	if !s.phase.canTransition(to) {
		s.c.logger.Error("unexpected line state", "line", s.c.index(s), "from", s.phase, "to", to)
	}
	s.phase = to
}

// position converts a widget offset to a codepoint index of the text the
// line will have once every pending edit is applied.
func (s *slot) position(value string, u int) int {
	cp := buffer.UTF16ToCodepoint(value, u)
	for _, p := range s.pending {
		cp = p.shift(cp)
	}
	return cp
}

func (s *slot) Post(ev Event) error {
	c := s.c
	if s.removed {
		return fmt.Errorf("%w: widget of a removed line", ErrNoSuchLine)
	}

	value := s.widget.Value()
	anchor, head := s.widget.Selection()
	t := &task{slot: s, ev: ev, before: value}

	switch ev := ev.(type) {
	case ScrollEvent:
		// Placed items are shifted, never measured again.
		s.layer.SetScroll(ev.X)
		return nil

	case FocusEvent:
		if ev.Focused && c.focused == s {
			return nil
		}

	case SelectionEvent:
		t.start = s.position(value, ev.Anchor)
		t.end = s.position(value, ev.Head)

	case EditEvent:
		if s.composing {
			// Raw input during a composition replaces the provisional text
			// and never reaches the engine.
			s.comp.text = ev.Text
			return nil
		}
		start16, end16 := ev.Range.sorted()
		t.start = s.position(value, start16)
		t.end = s.position(value, end16)
		t.text = ev.Text
		if len(s.pending) == 0 && c.simple.Simple(ev.Text) {
			c.echo(t, ev)
		} else {
			s.addPending(t)
		}

	case CompositionStartEvent:
		if s.composing {
			return c.reject(s, ev, Composing)
		}
		s.composing = true
		s.comp = composition{
			start: s.position(value, min(anchor, head)),
			end:   s.position(value, max(anchor, head)),
		}

	case CompositionUpdateEvent:
		if !s.composing {
			return c.reject(s, ev, Idle)
		}
		s.comp.text = ev.Text
		return nil

	case CompositionEndEvent:
		if !s.composing {
			return c.reject(s, ev, Idle)
		}
		s.composing = false
		final := ev.Text
		if final == "" {
			final = s.comp.text
		}
		if c.normalize {
			final = norm.NFC.String(final)
		}
		t.start, t.end, t.text = s.comp.start, s.comp.end, final
		s.comp = composition{}
		if t.text != "" || t.start != t.end {
			s.addPending(t)
		}
	}

	c.enqueue(t)
	return nil
}

func (c *Controller) enqueue(t *task) {
	c.push(t)
	c.dispatch()
}

// push queues t without dispatching.
func (c *Controller) push(t *task) {
	c.queue = append(c.queue, t)
}

func (c *Controller) reject(s *slot, ev Event, state State) error {
	err := illegal(eventName(ev), state)
	c.logger.Warn("event rejected", "line", c.index(s), "error", err)
	return err
}

// HandleKey takes over keys that cross line boundaries or change the line
// structure.
func (s *slot) HandleKey(k Key) bool {
	c := s.c
	if s.removed || s.composing {
		return false
	}
	idx := c.index(s)
	last := len(c.lines) - 1

	value := s.widget.Value()
	anchor, head := s.widget.Selection()
	collapsed := anchor == head

	var take bool
	switch k {
	case KeyEnter:
		take = true
	case KeyBackspace:
		take = collapsed && head == 0 && len(s.pending) == 0 && idx > 0
	case KeyUp:
		take = idx > 0
	case KeyDown:
		take = idx < last
	case KeyLeft:
		take = collapsed && head == 0 && idx > 0
	case KeyRight:
		take = collapsed && head >= buffer.UTF16Len(value) && len(s.pending) == 0 && idx < last
	}
	if !take {
		return false
	}

	col := s.position(value, head)
	c.enqueue(&task{slot: s, ev: KeyEvent{Key: k}, before: value, start: col, end: col})
	return true
}

// pendingEdit is an edit the widget does not show yet. Offsets posted by
// the widget meanwhile are shifted past it.
type pendingEdit struct {
	start int
	end   int
	n     int
}

func (p pendingEdit) shift(cp int) int {
	switch {
	case cp >= p.end:
		return cp + p.n - (p.end - p.start)
	case cp > p.start:
		return p.start + p.n
	}
	return cp
}

func (s *slot) addPending(t *task) {
	s.pending = append(s.pending, pendingEdit{
		start: t.start,
		end:   t.end,
		n:     utf8.RuneCountInString(t.text),
	})
}

// rebase maps the positions of the events queued for s onto the text the
// engine confirmed. They were computed against predicted, the text the line
// was expected to have, and change turns predicted into the confirmed text.
// The widget shows the confirmed text afterwards, so every queued edit is
// pending again.
func (c *Controller) rebase(s *slot, predicted []rune, change buffer.Patch) {
	actual := s.buf.Codepoints()
	d := mapping(change)
	s.pending = nil
	for _, u := range c.queue {
		if u.slot != s {
			continue
		}
		start, end := d.shift(u.start), d.shift(u.end)
		edit := u.edits()
		if edit {
			next, _ := splice(predicted, u.start, u.end, u.text)
			predicted = []rune(next)
			next, _ = splice(actual, start, end, u.text)
			actual = []rune(next)
			d = mapping(buffer.Diff(predicted, actual))
		}
		u.start, u.end = start, end
		if edit {
			s.addPending(u)
		}
	}

	if s.composing {
		s.comp.start, s.comp.end = d.shift(s.comp.start), d.shift(s.comp.end)
	}
}

// mapping describes p as a pending edit, so positions are shifted across it
// the same way.
func mapping(p buffer.Patch) pendingEdit {
	return pendingEdit{start: p.Start, end: p.End, n: len(p.Replacement)}
}
