// Package enginetest provides an in-process engine implementing the
// engine.Engine contract. It is small and deterministic, which makes it
// suitable for tests and demos.
package enginetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oligo/textsync/engine"
	"golang.org/x/exp/slices"
)

var _ engine.Engine = (*Engine)(nil)
var _ engine.SimpleCharSource = (*Engine)(nil)

// Transform rewrites every occurrence of From into To when a line is set.
type Transform struct {
	From string
	To   string
}

// Engine is a reference engine holding the document in memory.
type Engine struct {
	// Transforms are applied in order by SetLineText.
	Transforms []Transform
	// Simple lists the characters no transform touches.
	Simple []rune
	// Gap is the minimum horizontal distance between two placed overlays.
	Gap float32
	// Roles overrides the role reported for a line.
	Roles map[int]engine.Role
	// BeforeCall, when set, runs before every request with the method name.
	// Tests use it to block or fail a request.
	BeforeCall func(method string) error

	mu        sync.Mutex
	lines     [][]rune
	overlays  map[int][]engine.OverlayAnchor
	cursor    engine.Pos
	selection *engine.Selection
	title     string
	composer  string
	calls     []string
}

// New creates an engine holding the given lines. A document always has at
// least one line.
func New(lines ...string) *Engine {
	e := &Engine{
		overlays: make(map[int][]engine.OverlayAnchor),
	}
	for _, l := range lines {
		e.lines = append(e.lines, []rune(l))
	}
	if len(e.lines) == 0 {
		e.lines = append(e.lines, nil)
	}
	return e
}

// SetMeta sets the document title and composer.
func (e *Engine) SetMeta(title, composer string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.title, e.composer = title, composer
}

// SetOverlays replaces the annotations anchored on a line.
func (e *Engine) SetOverlays(line int, anchors ...engine.OverlayAnchor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlays[line] = slices.Clone(anchors)
}

// Line returns the current text of a line.
func (e *Engine) Line(i int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.lines) {
		return ""
	}
	return string(e.lines[i])
}

// LineCount returns the number of lines in the document.
func (e *Engine) LineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines)
}

// Selection returns the last selection pushed to the engine.
func (e *Engine) Selection() (engine.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selection == nil {
		return engine.Selection{}, false
	}
	return *e.selection, true
}

// Calls returns the methods invoked so far, in order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

func (e *Engine) enter(method string) error {
	if e.BeforeCall != nil {
		if err := e.BeforeCall(method); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.calls = append(e.calls, method)
	return nil
}

func (e *Engine) checkLine(line int) error {
	if line < 0 || line >= len(e.lines) {
		return fmt.Errorf("%w: %d (document has %d lines)", engine.ErrLineOutOfRange, line, len(e.lines))
	}
	return nil
}

func (e *Engine) transform(s string) string {
	for _, t := range e.Transforms {
		s = strings.ReplaceAll(s, t.From, t.To)
	}
	return s
}

func (e *Engine) SetLineText(ctx context.Context, line int, text string, cursor int) (engine.LineResult, error) {
	if err := e.enter("setLineText"); err != nil {
		return engine.LineResult{}, err
	}
	defer e.mu.Unlock()

	if err := e.checkLine(line); err != nil {
		return engine.LineResult{}, err
	}

	runes := []rune(text)
	out := []rune(e.transform(text))
	newCursor := len(out)
	if cursor != engine.NoCursor {
		cursor = min(max(cursor, 0), len(runes))
		newCursor = len([]rune(e.transform(string(runes[:cursor]))))
	}

	e.lines[line] = out
	e.cursor = engine.Pos{Line: line, Col: newCursor}

	return engine.LineResult{
		Text:     string(out),
		Cursor:   newCursor,
		Overlays: slices.Clone(e.overlays[line]),
	}, nil
}

func (e *Engine) SplitLine(ctx context.Context, line int, cursor int) (engine.Layout, error) {
	if err := e.enter("splitLine"); err != nil {
		return engine.Layout{}, err
	}
	defer e.mu.Unlock()

	if err := e.checkLine(line); err != nil {
		return engine.Layout{}, err
	}

	cur := e.lines[line]
	at := min(max(cursor, 0), len(cur))
	head := slices.Clone(cur[:at])
	tail := slices.Clone(cur[at:])

	e.lines[line] = head
	e.lines = slices.Insert(e.lines, line+1, tail)

	overlays := make(map[int][]engine.OverlayAnchor, len(e.overlays)+1)
	for i, anchors := range e.overlays {
		switch {
		case i < line:
			overlays[i] = anchors
		case i > line:
			overlays[i+1] = anchors
		default:
			for _, a := range anchors {
				if a.CharIndex < at {
					overlays[line] = append(overlays[line], a)
				} else {
					a.CharIndex -= at
					overlays[line+1] = append(overlays[line+1], a)
				}
			}
		}
	}
	e.overlays = overlays

	e.cursor = engine.Pos{Line: line + 1, Col: 0}
	e.selection = nil
	return e.layout(), nil
}

func (e *Engine) JoinLines(ctx context.Context, line int) (engine.Layout, error) {
	if err := e.enter("joinLines"); err != nil {
		return engine.Layout{}, err
	}
	defer e.mu.Unlock()

	if line == 0 {
		return e.layout(), nil
	}
	if err := e.checkLine(line); err != nil {
		return engine.Layout{}, err
	}

	prev := line - 1
	joinCol := len(e.lines[prev])
	e.lines[prev] = append(e.lines[prev], e.lines[line]...)
	e.lines = slices.Delete(e.lines, line, line+1)

	overlays := make(map[int][]engine.OverlayAnchor, len(e.overlays))
	for i, anchors := range e.overlays {
		switch {
		case i < line:
			overlays[i] = append(overlays[i], anchors...)
		case i > line:
			overlays[i-1] = anchors
		default:
			for _, a := range anchors {
				a.CharIndex += joinCol
				overlays[prev] = append(overlays[prev], a)
			}
		}
	}
	e.overlays = overlays

	e.cursor = engine.Pos{Line: prev, Col: joinCol}
	e.selection = nil
	return e.layout(), nil
}

func (e *Engine) SetSelection(ctx context.Context, anchor, head engine.Pos) error {
	if err := e.enter("setSelection"); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := e.checkLine(anchor.Line); err != nil {
		return err
	}
	if err := e.checkLine(head.Line); err != nil {
		return err
	}
	e.selection = &engine.Selection{Anchor: anchor, Head: head}
	e.cursor = head
	return nil
}

func (e *Engine) ComputeDisplayList(ctx context.Context) (engine.Layout, error) {
	if err := e.enter("computeDisplayList"); err != nil {
		return engine.Layout{}, err
	}
	defer e.mu.Unlock()
	return e.layout(), nil
}

func (e *Engine) layout() engine.Layout {
	out := engine.Layout{
		Cursor:   e.cursor,
		Title:    e.title,
		Composer: e.composer,
	}
	if e.selection != nil {
		sel := *e.selection
		out.Selection = &sel
	}

	for i, l := range e.lines {
		d := engine.LineDisplay{
			Text:     string(l),
			Cursor:   engine.NoCursor,
			Overlays: slices.Clone(e.overlays[i]),
		}
		if e.cursor.Line == i {
			d.Cursor = e.cursor.Col
		}
		if s := e.selection; s != nil && !s.Collapsed() && s.Anchor.Line == i && s.Head.Line == i {
			d.Selection = &engine.Range{Start: s.Anchor.Col, End: s.Head.Col}
		}
		out.Lines = append(out.Lines, d)
	}
	return out
}

// ResolveOverlayPlacement places each kind of annotation left to right,
// pushing an item right when it would overlap the previous one.
func (e *Engine) ResolveOverlayPlacement(ctx context.Context, line int, positions []engine.AnchorPosition, widths []engine.ContentWidth) ([]engine.OverlayItem, error) {
	if err := e.enter("resolveOverlayPlacement"); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if err := e.checkLine(line); err != nil {
		return nil, err
	}

	xs := make(map[int]float32, len(positions))
	for _, p := range positions {
		xs[p.CharIndex] = p.X
	}
	ws := make(map[int]float32, len(widths))
	for _, w := range widths {
		ws[w.CharIndex] = w.Width
	}

	var items []engine.OverlayItem
	for _, a := range e.overlays[line] {
		x, ok := xs[a.CharIndex]
		if !ok {
			continue
		}
		items = append(items, engine.OverlayItem{Kind: a.Kind, CharIndex: a.CharIndex, Content: a.Content, X: x})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind < items[j].Kind
		}
		return items[i].X < items[j].X
	})

	var lastKind engine.OverlayKind
	var lastEnd float32
	for i := range items {
		it := &items[i]
		if i == 0 || it.Kind != lastKind {
			lastKind = it.Kind
		} else if it.X < lastEnd+e.Gap {
			it.X = lastEnd + e.Gap
		}
		lastEnd = it.X
		if it.Kind.WidthSensitive() {
			lastEnd += ws[it.CharIndex]
		}
	}

	return items, nil
}

func (e *Engine) LineRole(ctx context.Context, line int) (engine.Role, error) {
	if err := e.enter("lineRole"); err != nil {
		return engine.Role{}, err
	}
	defer e.mu.Unlock()

	if err := e.checkLine(line); err != nil {
		return engine.Role{}, err
	}
	if r, ok := e.Roles[line]; ok {
		return r, nil
	}
	return engine.Role{
		Kind:       engine.RoleMelody,
		GroupCount: len(strings.Fields(string(e.lines[line]))),
	}, nil
}

func (e *Engine) SimpleChars(ctx context.Context) ([]rune, error) {
	if err := e.enter("simpleChars"); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return slices.Clone(e.Simple), nil
}
