package textsync

import "golang.org/x/exp/slices"

// dispatch starts every queued event that is allowed to run.
//
// Events of one line run strictly in order: an event waits while an earlier
// event of the same line is queued or in flight. A split or join waits for
// every earlier event and request to finish, and holds back everything
// queued after it until the engine answered.
func (c *Controller) dispatch() {
	if c.barrier {
		return
	}
	var blocked map[*slot]bool

	for i := 0; i < len(c.queue); {
		t := c.queue[i]

		if t.slot.removed {
			c.logger.Warn("drop event of removed line", "event", eventName(t.ev))
			c.queue = slices.Delete(c.queue, i, i+1)
			continue
		}

		if t.structural() {
			if i > 0 || c.requests > 0 {
				return
			}
			c.queue = slices.Delete(c.queue, i, i+1)
			c.startStructural(t)
			return
		}

		if t.slot.busy || blocked[t.slot] {
			if blocked == nil {
				blocked = make(map[*slot]bool)
			}
			blocked[t.slot] = true
			i++
			continue
		}

		c.queue = slices.Delete(c.queue, i, i+1)
		c.start(t)
	}
}

// hasQueued reports whether s has events waiting in the queue.
func (c *Controller) hasQueued(s *slot) bool {
	return slices.ContainsFunc(c.queue, func(t *task) bool { return t.slot == s })
}

// start runs a line event. Local events complete immediately; the others
// mark the line busy until the engine answers.
func (c *Controller) start(t *task) {
	s := t.slot

	switch ev := t.ev.(type) {
	case EditEvent:
		c.submitEdit(s, t)

	case CompositionStartEvent:
		s.transition(Composing)

	case CompositionEndEvent:
		if t.text == "" && t.start == t.end {
			s.transition(Idle)
			return
		}
		c.submitEdit(s, t)

	case SelectionEvent:
		c.pushSelection(s, t)

	case KeyEvent:
		c.navigate(s, ev.Key, t.start)

	case FocusEvent:
		if !ev.Focused {
			if c.focused == s {
				c.focused = nil
			}
			return
		}
		c.focused = s
		c.resync(s)
	}
}
