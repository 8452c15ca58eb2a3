package textsync

import (
	"unicode/utf8"

	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/engine"
)

// splice replaces the codepoint range [start, end) of base with text. The
// range is clamped to base, so an edit posted against an older widget value
// still lands at a valid position. It returns the new text and the codepoint
// index following the inserted text.
func splice(base []rune, start, end int, text string) (string, int) {
	start = min(max(start, 0), len(base))
	end = min(max(end, start), len(base))

	out := make([]rune, 0, len(base)-(end-start)+len(text))
	out = append(out, base[:start]...)
	out = append(out, []rune(text)...)
	out = append(out, base[end:]...)
	return string(out), start + utf8.RuneCountInString(text)
}

// echo shows an edit of simple characters before the engine confirms it.
func (c *Controller) echo(t *task, ev EditEvent) {
	w := t.slot.widget
	after, cursor := splice([]rune(t.before), t.start, t.end, ev.Text)
	w.SetValue(after)
	caret := buffer.CodepointToUTF16(after, cursor)
	w.SetSelection(caret, caret)
}

// submitEdit sends the line text with the edit of t applied to the engine.
func (c *Controller) submitEdit(s *slot, t *task) {
	candidate, cursor := splice(s.buf.Codepoints(), t.start, t.end, t.text)
	line := c.index(s)

	s.transition(Syncing)
	s.busy = true
	c.requests++

	c.run(func() func() {
		res, err := c.engine.SetLineText(c.ctx, line, candidate, cursor)
		return func() {
			c.requests--
			s.busy = false
			c.finishEdit(s, t, line, candidate, cursor, res, err)
		}
	})
}

func (c *Controller) finishEdit(s *slot, t *task, line int, candidate string, cursor int, res engine.LineResult, err error) {
	s.transition(Idle)

	if err != nil {
		c.logger.Error("set line text failed", "line", line, "error", err)
		// Undo the edit in the prediction the queued events were built on.
		start := min(max(t.start, 0), s.buf.Len())
		undo := buffer.Replace(start, start, []rune(t.text)).Inverse(s.buf.Slice(t.start, t.end))
		c.restore(s)
		c.rebase(s, []rune(candidate), undo)
		return
	}

	p := buffer.Diff(s.buf.Codepoints(), []rune(res.Text))
	p.NewCursor = res.Cursor
	if !p.IsEmpty() {
		if err := s.buf.ApplyPatch(p); err != nil {
			c.logger.Error("apply engine text", "line", line, "error", err)
			return
		}
	}

	w := s.widget
	switch {
	case res.Text != candidate:
		// The engine transformed or rejected the input.
		c.showResult(s, res, cursor)
		c.rebase(s, []rune(candidate), buffer.Diff([]rune(candidate), []rune(res.Text)))
	case !c.hasQueued(s) && w.Value() != res.Text:
		c.showResult(s, res, cursor)
		s.pending = nil
	default:
		if !c.hasQueued(s) {
			s.pending = nil
		}
		anchor, head := w.Selection()
		n := buffer.UTF16Len(w.Value())
		if anchor > n || head > n {
			w.SetSelection(min(anchor, n), min(head, n))
		}
	}

	c.setAnchors(s, res.Overlays)
}

// showResult overwrites the widget with the engine text and places the
// selection the engine reported.
func (c *Controller) showResult(s *slot, res engine.LineResult, submitted int) {
	w := s.widget
	w.SetValue(res.Text)

	if res.Selection != nil {
		w.SetSelection(s.buf.CodepointToUTF16(res.Selection.Start), s.buf.CodepointToUTF16(res.Selection.End))
		return
	}
	cur := res.Cursor
	if cur == engine.NoCursor {
		cur = submitted
	}
	caret := s.buf.CodepointToUTF16(cur)
	w.SetSelection(caret, caret)
}

// restore shows the last confirmed text of a line again.
func (c *Controller) restore(s *slot) {
	w := s.widget
	if w.Value() == s.buf.String() {
		return
	}
	anchor, head := w.Selection()
	w.SetValue(s.buf.String())
	n := s.buf.UTF16Len()
	w.SetSelection(min(anchor, n), min(head, n))
}

// pushSelection sends the selection of t to the engine.
func (c *Controller) pushSelection(s *slot, t *task) {
	line := c.index(s)
	n := s.buf.Len()
	a := engine.Pos{Line: line, Col: min(t.start, n)}
	h := engine.Pos{Line: line, Col: min(t.end, n)}

	s.busy = true
	c.requests++
	c.run(func() func() {
		err := c.engine.SetSelection(c.ctx, a, h)
		return func() {
			c.requests--
			s.busy = false
			if err != nil {
				c.logger.Error("set selection failed", "line", line, "error", err)
			}
		}
	})
}

// resync restores the cursor and selection of a focused line from the
// engine.
func (c *Controller) resync(s *slot) {
	s.busy = true
	c.requests++
	c.run(func() func() {
		layout, err := c.engine.ComputeDisplayList(c.ctx)
		return func() {
			c.requests--
			s.busy = false
			if err != nil {
				c.logger.Error("compute display list failed", "error", err)
				return
			}
			if s.removed || c.focused != s {
				return
			}
			c.restoreSelection(s, c.index(s), layout)
		}
	})
}

// restoreSelection places the widget selection of line from layout when the
// engine cursor is on that line.
func (c *Controller) restoreSelection(s *slot, line int, layout engine.Layout) {
	if layout.Cursor.Line != line {
		return
	}
	w := s.widget
	if sel := layout.Selection; sel != nil && sel.Anchor.Line == line && sel.Head.Line == line {
		w.SetSelection(s.buf.CodepointToUTF16(sel.Anchor.Col), s.buf.CodepointToUTF16(sel.Head.Col))
		return
	}
	caret := s.buf.CodepointToUTF16(layout.Cursor.Col)
	w.SetSelection(caret, caret)
}
