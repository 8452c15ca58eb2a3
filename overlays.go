package textsync

import (
	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/overlay"
	"golang.org/x/exp/slices"
)

// setAnchors records the overlay anchors the engine reported for s. They are
// placed again only when they or the line text changed since the last round.
func (c *Controller) setAnchors(s *slot, anchors []engine.OverlayAnchor) {
	if !s.buf.Dirty() && slices.Equal(s.anchors, anchors) {
		return
	}
	s.anchors = anchors
	c.placeOverlays(s)
}

// placeOverlays starts a placement round for the overlays of s. Results of an
// older round arriving late are dropped by the layer.
func (c *Controller) placeOverlays(s *slot) {
	s.buf.ClearDirty()
	if c.overlays == nil || len(s.anchors) == 0 {
		s.layer.Clear()
		return
	}
	gen := s.layer.Begin()

	req := overlay.Request{
		Line:    c.index(s),
		Text:    s.buf.String(),
		Style:   c.style,
		Anchors: slices.Clone(s.anchors),
	}

	c.background++
	c.run(func() func() {
		items, err := c.overlays.Place(c.ctx, req)
		return func() {
			c.background--
			if err != nil {
				c.logger.Warn("overlay placement skipped", "line", req.Line, "error", err)
				return
			}
			if s.removed {
				return
			}
			s.layer.Apply(gen, items)
		}
	})
}

// refreshRole fetches the role shown next to s.
func (c *Controller) refreshRole(s *slot) {
	line := c.index(s)
	s.roleGen++
	gen := s.roleGen

	c.background++
	c.run(func() func() {
		role, err := c.engine.LineRole(c.ctx, line)
		return func() {
			c.background--
			if err != nil {
				c.logger.Warn("line role unavailable", "line", line, "error", err)
				return
			}
			if !s.removed && gen == s.roleGen {
				s.role = role
			}
		}
	})
}
