package overlay

import (
	"cmp"
	"image"
	"math"

	"gioui.org/gesture"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/oligo/textsync/engine"
	"github.com/rdleal/intervalst/interval"
)

// Layer holds the placed overlays of one line. Item positions are stored
// relative to the unscrolled content box; the scroll offset is applied when
// reading or drawing them.
type Layer struct {
	items   []Item
	gen     uint64
	applied uint64
	scrollX float32
	tree    *interval.MultiValueSearchTree[Item, int]
	// clicks holds the click gesture of each row drawn by Layout.
	clicks map[engine.OverlayKind]*gesture.Click
}

// Begin starts a new placement round and returns its generation. Results of
// older rounds are rejected by Apply.
func (l *Layer) Begin() uint64 {
	l.gen++
	return l.gen
}

// Apply replaces the items of the layer if gen is the latest generation
// handed out by Begin. It reports whether the items were applied.
func (l *Layer) Apply(gen uint64, items []Item) bool {
	if gen != l.gen || gen <= l.applied {
		return false
	}
	l.applied = gen
	l.items = append(l.items[:0], items...)
	l.index()
	return true
}

// Clear removes every item and invalidates pending rounds.
func (l *Layer) Clear() {
	l.gen++
	l.applied = l.gen
	l.items = l.items[:0]
	l.tree = nil
}

func (l *Layer) index() {
	l.tree = interval.NewMultiValueSearchTree[Item](func(a, b int) int {
		return cmp.Compare(a, b)
	})
	for _, it := range l.items {
		start, end := span(it)
		if err := l.tree.Insert(start, end, it); err != nil {
			logger.Debug("index overlay item", "content", it.Content, "error", err)
		}
	}
}

func span(it Item) (int, int) {
	start := int(math.Floor(float64(it.X)))
	end := int(math.Ceil(float64(it.X + it.Width)))
	return start, max(end, start+1)
}

// SetScroll records the horizontal scroll offset of the widget.
func (l *Layer) SetScroll(x float32) {
	l.scrollX = x
}

func (l *Layer) Scroll() float32 {
	return l.scrollX
}

// Len returns the number of placed items.
func (l *Layer) Len() int {
	return len(l.items)
}

// Items returns the placed items with the scroll offset applied.
func (l *Layer) Items() []Item {
	out := make([]Item, len(l.items))
	for i, it := range l.items {
		it.X -= l.scrollX
		out[i] = it
	}
	return out
}

// HitTest returns the items drawn at x, a position in the scrolled widget
// coordinates.
func (l *Layer) HitTest(x float32) []Item {
	if l.tree == nil {
		return nil
	}
	pos := int(math.Floor(float64(x + l.scrollX)))
	found, _ := l.tree.AllIntersections(pos, pos+1)
	return found
}

func (l *Layer) clicker(kind engine.OverlayKind) *gesture.Click {
	if l.clicks == nil {
		l.clicks = make(map[engine.OverlayKind]*gesture.Click)
	}
	c, ok := l.clicks[kind]
	if !ok {
		c = &gesture.Click{}
		l.clicks[kind] = c
	}
	return c
}

// Update processes clicks on the row of kind and returns the item clicked.
func (l *Layer) Update(gtx layout.Context, kind engine.OverlayKind) (Item, bool) {
	click := l.clicker(kind)
	for {
		evt, ok := click.Update(gtx.Source)
		if !ok {
			break
		}
		if evt.Kind != gesture.KindClick {
			continue
		}
		for _, it := range l.HitTest(float32(evt.Position.X)) {
			if it.Kind == kind {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Layout draws the items of one kind in a row. The row is as wide as the
// constraints and as tall as the tallest label.
func (l *Layer) Layout(gtx layout.Context, th *material.Theme, kind engine.OverlayKind, size unit.Sp) layout.Dimensions {
	defer clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops).Pop()

	height := 0
	for _, it := range l.items {
		if it.Kind != kind {
			continue
		}
		x := int(math.Round(float64(it.X - l.scrollX)))
		trans := op.Offset(image.Pt(x, 0)).Push(gtx.Ops)
		lgtx := gtx
		lgtx.Constraints.Min = image.Point{}
		dims := material.Label(th, size, it.Content).Layout(lgtx)
		trans.Pop()
		height = max(height, dims.Size.Y)
	}

	if height == 0 {
		height = gtx.Sp(size)
	}
	box := image.Pt(gtx.Constraints.Max.X, height)
	area := clip.Rect{Max: box}.Push(gtx.Ops)
	l.clicker(kind).Add(gtx.Ops)
	area.Pop()
	return layout.Dimensions{Size: box}
}
