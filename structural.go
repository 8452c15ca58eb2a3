package textsync

import (
	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/engine"
	"golang.org/x/exp/slices"
)

func (c *Controller) startStructural(t *task) {
	s := t.slot
	line := c.index(s)
	key := t.ev.(KeyEvent).Key
	col := min(t.start, s.buf.Len())

	c.requests++
	c.barrier = true
	c.run(func() func() {
		var layout engine.Layout
		var err error
		if key == KeyEnter {
			layout, err = c.engine.SplitLine(c.ctx, line, col)
		} else {
			layout, err = c.engine.JoinLines(c.ctx, line)
		}
		return func() {
			c.requests--
			c.barrier = false
			if err != nil {
				c.logger.Error("structural edit failed", "key", key, "line", line, "error", err)
				return
			}
			if key == KeyEnter {
				c.finishSplit(line, layout)
			} else {
				c.finishJoin(line, layout)
			}
		}
	})
}

func (c *Controller) finishSplit(line int, layout engine.Layout) {
	c.lines = slices.Insert(c.lines, line+1, c.newSlot())
	c.render(layout)

	if line+1 < len(c.lines) {
		c.focus(c.lines[line+1], 0, true)
	}
}

func (c *Controller) finishJoin(line int, layout engine.Layout) {
	if line > 0 && line < len(c.lines) && len(layout.Lines) < len(c.lines) {
		c.lines[line].removed = true
		c.lines = slices.Delete(c.lines, line, line+1)
	}
	c.render(layout)

	// The engine reports where the content was merged.
	target := min(max(layout.Cursor.Line, 0), len(c.lines)-1)
	if target >= 0 {
		c.focus(c.lines[target], layout.Cursor.Col, true)
	}
}

// render shows a full document layout. The registry is grown or shrunk at
// the end to match the number of lines of the layout.
func (c *Controller) render(layout engine.Layout) {
	for len(c.lines) < len(layout.Lines) {
		c.lines = append(c.lines, c.newSlot())
	}
	for len(c.lines) > len(layout.Lines) {
		last := len(c.lines) - 1
		c.lines[last].removed = true
		if c.focused == c.lines[last] {
			c.focused = nil
		}
		c.lines = c.lines[:last]
	}

	c.title = layout.Title
	c.composer = layout.Composer

	for i, d := range layout.Lines {
		s := c.lines[i]
		if p := buffer.Diff(s.buf.Codepoints(), []rune(d.Text)); !p.IsEmpty() {
			if err := s.buf.ApplyPatch(p); err != nil {
				c.logger.Error("apply engine text", "line", i, "error", err)
				continue
			}
		}
		if s.widget.Value() != d.Text {
			s.widget.SetValue(d.Text)
		}
		s.pending = nil
		s.label = d.Label
		s.anchors = d.Overlays
	}

	for _, s := range c.lines {
		c.refreshRole(s)
		c.placeOverlays(s)
	}
}

// navigate moves focus across a line boundary.
func (c *Controller) navigate(s *slot, k Key, col int) {
	line := c.index(s)

	var target, targetCol int
	switch k {
	case KeyUp:
		target, targetCol = line-1, col
	case KeyDown:
		target, targetCol = line+1, col
	case KeyLeft:
		target = line - 1
		if target >= 0 {
			targetCol = c.lines[target].buf.Len()
		}
	case KeyRight:
		target, targetCol = line+1, 0
	default:
		return
	}
	if target < 0 || target >= len(c.lines) {
		return
	}

	c.focus(c.lines[target], targetCol, true)
}

// focus gives s the keyboard focus with a collapsed selection at col, clamped
// to the line length. With push set the new selection is sent to the engine.
func (c *Controller) focus(s *slot, col int, push bool) {
	col = min(max(col, 0), s.buf.Len())
	caret := s.buf.CodepointToUTF16(col)

	c.focused = s
	s.widget.Focus()
	s.widget.SetSelection(caret, caret)
	if !push {
		return
	}

	c.push(&task{
		slot:   s,
		ev:     SelectionEvent{Anchor: caret, Head: caret},
		before: s.widget.Value(),
		start:  col,
		end:    col,
	})
}
