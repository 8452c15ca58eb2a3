// Package overlay positions annotations, such as lyrics and rhythm markers,
// over the characters of a line widget.
//
// The Client measures anchor positions with a mirror and lets the engine
// resolve the final placement. A Layer keeps the placed items of one line and
// shifts them on scroll without measuring again.
package overlay

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/mirror"
)

// Item is a placed annotation with the rendered width of its content.
type Item struct {
	engine.OverlayItem
	Width float32
}

// Request describes the overlays of one line to be placed.
type Request struct {
	Line    int
	Text    string
	Style   mirror.Style
	Anchors []engine.OverlayAnchor
}

// Client places the overlays of a line.
type Client struct {
	engine engine.Engine
	mirror mirror.Mirror
}

func NewClient(e engine.Engine, m mirror.Mirror) *Client {
	return &Client{engine: e, mirror: m}
}

// Place measures the anchors of req and asks the engine for their placement.
// A request without usable anchors returns no items and does not touch the
// mirror. Anchors past the end of the line are skipped.
func (c *Client) Place(ctx context.Context, req Request) ([]Item, error) {
	if len(req.Anchors) == 0 {
		return nil, nil
	}

	n := utf8.RuneCountInString(req.Text)
	anchors := make([]engine.OverlayAnchor, 0, len(req.Anchors))
	for _, a := range req.Anchors {
		if a.CharIndex < 0 || a.CharIndex > n {
			logger.Debug("skip stale overlay anchor", "line", req.Line, "kind", a.Kind, "index", a.CharIndex, "length", n)
			continue
		}
		anchors = append(anchors, a)
	}
	if len(anchors) == 0 {
		return nil, nil
	}

	indices := make([]int, 0, len(anchors))
	seen := make(map[int]bool, len(anchors))
	contents := make([]string, len(anchors))
	for i, a := range anchors {
		if !seen[a.CharIndex] {
			seen[a.CharIndex] = true
			indices = append(indices, a.CharIndex)
		}
		contents[i] = a.Content
	}

	m, err := c.mirror.Measure(req.Style, req.Text, indices, contents)
	if err != nil {
		logger.Warn("skip overlay placement", "line", req.Line, "error", err)
		return nil, fmt.Errorf("measure line %d: %w", req.Line, err)
	}

	positions := make([]engine.AnchorPosition, len(indices))
	for i, idx := range indices {
		positions[i] = engine.AnchorPosition{CharIndex: idx, X: m.Positions[i]}
	}

	var widths []engine.ContentWidth
	widthOf := make(map[string]float32, len(anchors))
	for i, a := range anchors {
		widthOf[a.Content] = m.Widths[i]
		if a.Kind.WidthSensitive() {
			widths = append(widths, engine.ContentWidth{CharIndex: a.CharIndex, Content: a.Content, Width: m.Widths[i]})
		}
	}

	placed, err := c.engine.ResolveOverlayPlacement(ctx, req.Line, positions, widths)
	if err != nil {
		return nil, fmt.Errorf("resolve overlay placement of line %d: %w", req.Line, err)
	}

	items := make([]Item, len(placed))
	for i, p := range placed {
		items[i] = Item{OverlayItem: p, Width: widthOf[p.Content]}
	}
	return items, nil
}
