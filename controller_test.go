package textsync

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/engine/enginetest"
	"github.com/oligo/textsync/mirror"
	"github.com/oligo/textsync/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(lines ...string) *enginetest.Engine {
	e := enginetest.New(lines...)
	e.Simple = []rune("1234567 -")
	e.Transforms = []enginetest.Transform{{From: "|:", To: "𝄆"}}
	return e
}

func load(t *testing.T, e *enginetest.Engine, opts ...Option) *Controller {
	t.Helper()
	c := New(e, opts...)
	t.Cleanup(c.Close)
	require.NoError(t, c.Load(context.Background()))
	wait(t, c)
	return c
}

func wait(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func mem(t *testing.T, c *Controller, line int) *MemWidget {
	t.Helper()
	w, err := c.Widget(line)
	require.NoError(t, err)
	return w.(*MemWidget)
}

func countCalls(e *enginetest.Engine, method string) int {
	n := 0
	for _, m := range e.Calls() {
		if m == method {
			n++
		}
	}
	return n
}

func TestLoad(t *testing.T) {
	e := newEngine("12 34", "5")
	e.SetMeta("Raga", "Anon")
	c := load(t, e)

	require.Equal(t, 2, c.Len())
	assert.Equal(t, "12 34", mem(t, c, 0).Value())
	assert.Equal(t, "5", mem(t, c, 1).Value())
	assert.Equal(t, 0, c.Focused())
	assert.Equal(t, "Raga", c.Title())
	assert.Equal(t, "Anon", c.Composer())

	lines := c.Lines()
	assert.Equal(t, engine.Role{Kind: engine.RoleMelody, GroupCount: 2}, lines[0].Role)
}

func TestLoadRestoresSelection(t *testing.T) {
	e := newEngine("12", "1😀3")
	require.NoError(t, e.SetSelection(context.Background(), engine.Pos{Line: 1, Col: 1}, engine.Pos{Line: 1, Col: 2}))
	c := load(t, e)

	assert.Equal(t, 1, c.Focused())
	a, h := mem(t, c, 1).Selection()
	assert.Equal(t, 1, a)
	assert.Equal(t, 3, h)
}

func TestSimpleEditIsEchoed(t *testing.T) {
	e := newEngine("12")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.Select(2, 2))
	require.NoError(t, w.Type("3"))
	// Shown before the engine answered.
	assert.Equal(t, "123", w.Value())

	wait(t, c)
	text, err := c.Text(0)
	require.NoError(t, err)
	assert.Equal(t, "123", text)
	assert.Equal(t, "123", e.Line(0))
}

func TestEngineTransformOverwritesWidget(t *testing.T) {
	e := newEngine("1")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.Select(1, 1))
	require.NoError(t, w.Type("|"))
	require.NoError(t, w.Type(":"))
	wait(t, c)

	assert.Equal(t, "1𝄆", w.Value())
	text, _ := c.Text(0)
	assert.Equal(t, "1𝄆", text)
	// The cursor follows the engine: codepoint 2 is UTF-16 offset 3.
	a, h := w.Selection()
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, h)
}

func TestMatchingResultKeepsWidgetCursor(t *testing.T) {
	e := newEngine("1234")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.Type("5"))
	assert.Equal(t, "51234", w.Value())
	w.SetSelection(4, 4)
	wait(t, c)

	assert.Equal(t, "51234", w.Value())
	a, h := w.Selection()
	assert.Equal(t, 4, a)
	assert.Equal(t, 4, h)
}

func TestEditFailureKeepsLastGoodText(t *testing.T) {
	e := newEngine("12")
	c := load(t, e)
	w := mem(t, c, 0)

	e.BeforeCall = func(method string) error {
		if method == "setLineText" {
			return errors.New("engine down")
		}
		return nil
	}

	require.NoError(t, w.Type("3"))
	assert.Equal(t, "312", w.Value())
	wait(t, c)

	// The optimistic echo is rolled back.
	assert.Equal(t, "12", w.Value())
	text, _ := c.Text(0)
	assert.Equal(t, "12", text)
	assert.Equal(t, "12", e.Line(0))

	// Input the widget never showed leaves it untouched.
	require.NoError(t, w.Type("x"))
	wait(t, c)
	assert.Equal(t, "12", w.Value())
}

func TestEditsAreSerializedPerLine(t *testing.T) {
	e := newEngine("")
	c := load(t, e)
	w := mem(t, c, 0)

	gate := make(chan struct{})
	e.BeforeCall = func(method string) error {
		if method == "setLineText" {
			<-gate
		}
		return nil
	}

	require.NoError(t, w.Type("1"))
	require.NoError(t, w.Type("2"))
	require.NoError(t, w.Type("3"))

	state, err := c.State(0)
	require.NoError(t, err)
	assert.Equal(t, Syncing, state)
	// Only the first edit is in flight; the others wait in order.
	assert.Len(t, c.queue, 2)
	assert.Equal(t, 1, c.requests)

	close(gate)
	wait(t, c)

	assert.Equal(t, "123", e.Line(0))
	assert.Equal(t, "123", w.Value())
	assert.Equal(t, 3, countCalls(e, "setLineText"))
	state, _ = c.State(0)
	assert.Equal(t, Idle, state)
}

func TestQueuedEditFollowsEngineTransform(t *testing.T) {
	e := newEngine("1|ab")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.Select(2, 2))
	require.NoError(t, w.Type(":"))
	// Typed after ":" while the engine has not answered yet.
	require.NoError(t, w.Type("x"))
	wait(t, c)

	assert.Equal(t, "1𝄆xab", e.Line(0))
	text, _ := c.Text(0)
	assert.Equal(t, "1𝄆xab", text)
	assert.Equal(t, "1𝄆xab", w.Value())
}

func failFirst(method string) func(string) error {
	failed := false
	return func(m string) error {
		if m == method && !failed {
			failed = true
			return errors.New("engine down")
		}
		return nil
	}
}

func TestQueuedEditAfterFailure(t *testing.T) {
	e := newEngine("ab")
	c := load(t, e)
	w := mem(t, c, 0)
	w.SetSelection(0, 0)

	e.BeforeCall = failFirst("setLineText")
	require.NoError(t, w.Type("|"))
	require.NoError(t, w.Type("x"))
	wait(t, c)

	assert.Equal(t, "xab", e.Line(0))
	text, _ := c.Text(0)
	assert.Equal(t, "xab", text)
	assert.Equal(t, "xab", w.Value())
}

func TestEchoedEditAfterFailure(t *testing.T) {
	e := newEngine("12")
	c := load(t, e)
	w := mem(t, c, 0)
	w.SetSelection(0, 0)

	e.BeforeCall = failFirst("setLineText")
	require.NoError(t, w.Type("3"))
	require.NoError(t, w.Type("4"))
	assert.Equal(t, "3412", w.Value())
	wait(t, c)

	assert.Equal(t, "412", e.Line(0))
	assert.Equal(t, "412", w.Value())
}

func TestQueuedSplitFollowsEngineTransform(t *testing.T) {
	e := newEngine("1|ab")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.Select(2, 2))
	require.NoError(t, w.Type(":"))
	require.NoError(t, w.Press(KeyEnter))
	wait(t, c)

	require.Equal(t, 2, c.Len())
	first, _ := c.Text(0)
	second, _ := c.Text(1)
	assert.Equal(t, "1𝄆", first)
	assert.Equal(t, "ab", second)
}

func TestEnterSplitsLine(t *testing.T) {
	e := newEngine("1234")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.Select(2, 2))
	require.NoError(t, w.Press(KeyEnter))
	wait(t, c)

	require.Equal(t, 2, c.Len())
	first, _ := c.Text(0)
	second, _ := c.Text(1)
	assert.Equal(t, "12", first)
	assert.Equal(t, "34", second)
	assert.Equal(t, "1234", first+second)

	assert.Equal(t, 1, c.Focused())
	next := mem(t, c, 1)
	assert.True(t, next.Focused())
	a, h := next.Selection()
	assert.Equal(t, 0, a)
	assert.Equal(t, 0, h)

	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, engine.Pos{Line: 1, Col: 0}, sel.Head)
}

func TestBackspaceJoinsLines(t *testing.T) {
	e := newEngine("12", "34")
	c := load(t, e)
	w := mem(t, c, 1)

	require.NoError(t, w.Click())
	require.NoError(t, w.Select(0, 0))
	require.NoError(t, w.Press(KeyBackspace))
	wait(t, c)

	require.Equal(t, 1, c.Len())
	text, _ := c.Text(0)
	assert.Equal(t, "1234", text)
	assert.Equal(t, 0, c.Focused())
	a, h := mem(t, c, 0).Selection()
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, h)

	// The widget of the removed line is detached.
	assert.ErrorIs(t, w.Type("5"), ErrNoSuchLine)
}

func TestBackspaceInsideLineEdits(t *testing.T) {
	e := newEngine("12", "3😀")
	c := load(t, e)
	w := mem(t, c, 1)

	require.NoError(t, w.Select(3, 3))
	require.NoError(t, w.Press(KeyBackspace))
	wait(t, c)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "3", e.Line(1))
	assert.Equal(t, "3", w.Value())
}

func TestArrowNavigation(t *testing.T) {
	e := newEngine("12345", "1😀")
	c := load(t, e)
	w0, w1 := mem(t, c, 0), mem(t, c, 1)

	selection := func(w *MemWidget) [2]int {
		a, h := w.Selection()
		return [2]int{a, h}
	}

	// Down clamps the column to the shorter line.
	require.NoError(t, w0.Select(4, 4))
	require.NoError(t, w0.Press(KeyDown))
	wait(t, c)
	assert.Equal(t, 1, c.Focused())
	assert.Equal(t, [2]int{3, 3}, selection(w1))

	// Up keeps the codepoint column.
	require.NoError(t, w1.Press(KeyUp))
	wait(t, c)
	assert.Equal(t, 0, c.Focused())
	assert.Equal(t, [2]int{2, 2}, selection(w0))

	// Left at the start goes to the end of the previous line.
	require.NoError(t, w1.Select(0, 0))
	require.NoError(t, w1.Press(KeyLeft))
	wait(t, c)
	assert.Equal(t, 0, c.Focused())
	assert.Equal(t, [2]int{5, 5}, selection(w0))

	// Right at the end goes to the start of the next line.
	require.NoError(t, w0.Press(KeyRight))
	wait(t, c)
	assert.Equal(t, 1, c.Focused())
	assert.Equal(t, [2]int{0, 0}, selection(w1))

	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, engine.Pos{Line: 1, Col: 0}, sel.Head)

	// Up on the first line stays in the widget.
	assert.False(t, c.HandleKey(0, KeyUp))
}

func TestSelectionIsPushedAsCodepoints(t *testing.T) {
	e := newEngine("1😀3")
	c := load(t, e)

	require.NoError(t, mem(t, c, 0).Select(1, 4))
	wait(t, c)

	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, engine.Pos{Line: 0, Col: 1}, sel.Anchor)
	assert.Equal(t, engine.Pos{Line: 0, Col: 3}, sel.Head)
}

func TestFocusResyncsFromEngine(t *testing.T) {
	e := newEngine("1234", "5")
	c := load(t, e)
	w1 := mem(t, c, 1)

	require.NoError(t, e.SetSelection(context.Background(), engine.Pos{Line: 1, Col: 1}, engine.Pos{Line: 1, Col: 1}))
	require.NoError(t, w1.Click())
	wait(t, c)

	assert.Equal(t, 1, c.Focused())
	a, h := w1.Selection()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, h)
}

func TestFocusAt(t *testing.T) {
	e := newEngine("12", "1😀3")
	c := load(t, e)

	require.NoError(t, c.FocusAt(1, 2))
	wait(t, c)

	assert.Equal(t, 1, c.Focused())
	w := mem(t, c, 1)
	assert.True(t, w.Focused())
	a, h := w.Selection()
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, h)

	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, engine.Pos{Line: 1, Col: 2}, sel.Head)

	assert.ErrorIs(t, c.FocusAt(5, 0), ErrNoSuchLine)
}

func TestCompositionIsBuffered(t *testing.T) {
	e := newEngine("")
	c := load(t, e)
	w := mem(t, c, 0)

	require.NoError(t, w.StartComposition())
	require.NoError(t, w.UpdateComposition("e"))
	require.NoError(t, w.Type("e\u0301"))
	wait(t, c)

	state, _ := c.State(0)
	assert.Equal(t, Composing, state)
	assert.Zero(t, countCalls(e, "setLineText"))

	require.NoError(t, w.EndComposition(""))
	wait(t, c)

	assert.Equal(t, 1, countCalls(e, "setLineText"))
	text, _ := c.Text(0)
	assert.Equal(t, "\u00e9", text)
	assert.Equal(t, 1, utf8.RuneCountInString(text))
	assert.Equal(t, "\u00e9", w.Value())
	state, _ = c.State(0)
	assert.Equal(t, Idle, state)
}

func TestCompositionWithoutNormalization(t *testing.T) {
	e := newEngine("")
	c := load(t, e, WithNormalizeComposition(false))
	w := mem(t, c, 0)

	require.NoError(t, w.StartComposition())
	require.NoError(t, w.EndComposition("e\u0301"))
	wait(t, c)

	text, _ := c.Text(0)
	assert.Equal(t, 2, utf8.RuneCountInString(text))
}

func TestIllegalTransitions(t *testing.T) {
	c := load(t, newEngine(""))
	w := mem(t, c, 0)

	assert.ErrorIs(t, w.EndComposition("x"), ErrIllegalTransition)
	assert.ErrorIs(t, w.UpdateComposition("x"), ErrIllegalTransition)

	require.NoError(t, w.StartComposition())
	assert.ErrorIs(t, w.StartComposition(), ErrIllegalTransition)
	// Keys belong to the input method while composing.
	assert.False(t, c.HandleKey(0, KeyEnter))
}

func TestEventsFollowWidgetAcrossSplit(t *testing.T) {
	e := newEngine("ab", "cd")
	c := load(t, e)
	w1 := mem(t, c, 1)

	gate := make(chan struct{})
	e.BeforeCall = func(method string) error {
		if method == "splitLine" {
			<-gate
		}
		return nil
	}

	require.True(t, c.HandleKey(0, KeyEnter))
	require.NoError(t, w1.Type("5"))
	close(gate)
	wait(t, c)

	require.Equal(t, 3, c.Len())
	assert.Same(t, w1, mem(t, c, 2))
	assert.Equal(t, "5cd", e.Line(2))
	text, _ := c.Text(2)
	assert.Equal(t, "5cd", text)
	assert.Equal(t, "5cd", w1.Value())
}

func TestNoSuchLine(t *testing.T) {
	c := load(t, newEngine("a"))

	_, err := c.Text(3)
	assert.ErrorIs(t, err, ErrNoSuchLine)
	assert.ErrorIs(t, c.Post(-1, EditEvent{}), ErrNoSuchLine)
}

type countingMirror struct {
	inner mirror.Mirror
	calls int
}

func (m *countingMirror) Measure(style mirror.Style, text string, indices []int, contents []string) (mirror.Measurement, error) {
	m.calls++
	return m.inner.Measure(style, text, indices, contents)
}

func TestOverlaysFollowEditsNotScroll(t *testing.T) {
	e := newEngine("1234")
	e.SetOverlays(0, engine.OverlayAnchor{Kind: engine.OverlayTala, CharIndex: 1, Content: "X"})
	m := &countingMirror{inner: &mirror.CellMirror{CellWidth: 10}}
	c := load(t, e, WithOverlayClient(overlay.NewClient(e, m)))

	layer := c.Lines()[0].Overlays
	require.Equal(t, 1, layer.Len())
	assert.Equal(t, float32(10), layer.Items()[0].X)
	measured := m.calls

	require.NoError(t, c.Post(0, ScrollEvent{X: 4}))
	assert.Equal(t, float32(6), layer.Items()[0].X)
	wait(t, c)
	assert.Equal(t, measured, m.calls)

	require.NoError(t, mem(t, c, 0).Type("5"))
	wait(t, c)
	assert.Greater(t, m.calls, measured)
}

func TestSetMirrorStylePlacesAgain(t *testing.T) {
	e := newEngine("1234")
	e.SetOverlays(0, engine.OverlayAnchor{Kind: engine.OverlayTala, CharIndex: 0, Content: "X"})
	c := load(t, e, WithOverlayClient(overlay.NewClient(e, &mirror.CellMirror{CellWidth: 10})))

	c.SetMirrorStyle(mirror.Style{PaddingLeft: 8})
	wait(t, c)
	assert.Equal(t, float32(8), c.Lines()[0].Overlays.Items()[0].X)
}

func TestUnchangedLineIsNotPlacedAgain(t *testing.T) {
	e := newEngine("1234")
	e.SetOverlays(0, engine.OverlayAnchor{Kind: engine.OverlayTala, CharIndex: 1, Content: "X"})
	m := &countingMirror{inner: &mirror.CellMirror{CellWidth: 10}}
	c := load(t, e, WithOverlayClient(overlay.NewClient(e, m)))
	measured := m.calls

	// An empty edit round-trips the same text and the same anchors.
	require.NoError(t, c.Post(0, EditEvent{Range: UTF16Range{Start: 2, End: 2}}))
	wait(t, c)
	assert.Equal(t, 1, countCalls(e, "setLineText"))
	assert.Equal(t, measured, m.calls)
	assert.Equal(t, 1, c.Lines()[0].Overlays.Len())
}
