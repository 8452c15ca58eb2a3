package textinput

import (
	"testing"

	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/io/key"
	"gioui.org/text"
	"github.com/oligo/textsync"
	"github.com/oligo/textsync/internal/painter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/math/fixed"
)

type recorder struct {
	events []textsync.Event
	keys   []textsync.Key
	take   map[textsync.Key]bool
}

func (r *recorder) Post(ev textsync.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) HandleKey(k textsync.Key) bool {
	r.keys = append(r.keys, k)
	return r.take[k]
}

func newInput(value string, anchor, head int) (*LineInput, *recorder) {
	r := &recorder{take: map[textsync.Key]bool{}}
	in := New(r).(*LineInput)
	in.SetValue(value)
	in.SetSelection(anchor, head)
	return in, r
}

func TestValueIsNotEditedByInput(t *testing.T) {
	in, r := newInput("ab", 2, 2)

	in.edit(key.EditEvent{Range: key.Range{Start: 2, End: 2}, Text: "c"})
	assert.Equal(t, "ab", in.Value())
	require.Len(t, r.events, 1)
	assert.Equal(t, textsync.EditEvent{Range: textsync.UTF16Range{Start: 2, End: 2}, Text: "c"}, r.events[0])
}

func TestEditRangeIsConvertedToUTF16(t *testing.T) {
	in, r := newInput("a😀b", 0, 0)

	// Runes 2..3 cover "b", after the surrogate pair.
	in.edit(key.EditEvent{Range: key.Range{Start: 2, End: 3}, Text: ""})
	require.Len(t, r.events, 1)
	assert.Equal(t, textsync.UTF16Range{Start: 3, End: 4}, r.events[0].(textsync.EditEvent).Range)
}

func TestNewlineInputSplits(t *testing.T) {
	in, r := newInput("ab", 1, 1)

	in.edit(key.EditEvent{Range: key.Range{Start: 1, End: 1}, Text: "\n"})
	assert.Empty(t, r.events)
	assert.Equal(t, []textsync.Key{textsync.KeyEnter}, r.keys)
}

func TestBackspaceDeletesCluster(t *testing.T) {
	in, r := newInput("ae\u0301", 3, 3)

	in.command(key.NameDeleteBackward, 0)
	assert.Equal(t, []textsync.Key{textsync.KeyBackspace}, r.keys)
	require.Len(t, r.events, 1)
	assert.Equal(t, textsync.UTF16Range{Start: 1, End: 3}, r.events[0].(textsync.EditEvent).Range)
}

func TestTakenKeyIsNotProcessed(t *testing.T) {
	in, r := newInput("ab", 0, 0)
	r.take[textsync.KeyBackspace] = true
	r.take[textsync.KeyLeft] = true

	in.command(key.NameDeleteBackward, 0)
	in.command(key.NameLeftArrow, 0)
	assert.Empty(t, r.events)
}

func TestArrowMovesByCluster(t *testing.T) {
	in, r := newInput("😀e\u0301x", 0, 0)

	in.command(key.NameRightArrow, 0)
	a, h := in.Selection()
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, h)

	in.command(key.NameRightArrow, key.ModShift)
	a, h = in.Selection()
	assert.Equal(t, 2, a)
	assert.Equal(t, 4, h)

	// Shift extends locally and is never offered to the controller.
	assert.Equal(t, []textsync.Key{textsync.KeyRight}, r.keys)
	require.Len(t, r.events, 2)
	assert.Equal(t, textsync.SelectionEvent{Anchor: 2, Head: 4}, r.events[1])

	in.command(key.NameLeftArrow, 0)
	a, h = in.Selection()
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, h)

	in.command(key.NameEnd, 0)
	_, h = in.Selection()
	assert.Equal(t, 5, h)
}

func TestIMESelection(t *testing.T) {
	in, r := newInput("😀ab", 0, 0)

	in.imeSelect(key.Range{Start: 1, End: 2})
	a, h := in.Selection()
	assert.Equal(t, 2, a)
	assert.Equal(t, 3, h)
	assert.Equal(t, textsync.SelectionEvent{Anchor: 2, Head: 3}, r.events[0])
}

func TestFocusRequestedByControllerIsSilent(t *testing.T) {
	in, r := newInput("ab", 0, 0)

	in.Focus()
	in.focus(true)
	assert.Empty(t, r.events)

	in.focus(false)
	assert.Equal(t, []textsync.Event{textsync.FocusEvent{Focused: false}}, r.events)
	in.focus(true)
	assert.Equal(t, textsync.FocusEvent{Focused: true}, r.events[1])
}

func TestScrollIsReported(t *testing.T) {
	in, r := newInput("ab", 0, 0)

	in.scrollTo(12)
	in.scrollTo(12)
	in.scrollTo(-3)
	assert.Equal(t, []textsync.Event{textsync.ScrollEvent{X: 12}, textsync.ScrollEvent{X: 0}}, r.events)
}

func TestSetValueClampsSelection(t *testing.T) {
	in, _ := newInput("abcd", 1, 4)

	in.SetValue("ab")
	a, h := in.Selection()
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, h)
}

func TestClusters(t *testing.T) {
	var c clusters
	c.reset("a😀e\u0301")
	assert.Equal(t, []int{0, 1, 3, 5}, c.bounds)

	assert.Equal(t, 1, c.prev(3))
	assert.Equal(t, 1, c.prev(2))
	assert.Equal(t, 0, c.prev(0))
	assert.Equal(t, 3, c.next(1))
	assert.Equal(t, 5, c.next(5))
	assert.Equal(t, 3, c.snap(4))
	assert.Equal(t, 1, c.snap(2))
}

func TestShapedLine(t *testing.T) {
	shaper := text.NewShaper(text.NoSystemFonts(), text.WithCollection(gofont.Collection()))
	var l shapedLine
	var p painter.TextPainter

	s := "a😀b"
	l.shape(shaper, font.Font{}, fixed.I(16), s, &p)
	require.Len(t, l.xs, 4)
	for i := 1; i < len(l.xs); i++ {
		assert.GreaterOrEqual(t, l.xs[i], l.xs[i-1])
	}
	assert.Equal(t, l.xs[3], l.width())
	assert.Equal(t, l.xs[2], l.x(s, 3))

	assert.Equal(t, 0, l.closest(s, 0))
	assert.Equal(t, 4, l.closest(s, l.width()+fixed.I(10)))

	empty := shapedLine{}
	empty.shape(shaper, font.Font{}, fixed.I(16), "", &p)
	assert.Equal(t, fixed.Int26_6(0), empty.width())
}

func TestCompositionIsForwarded(t *testing.T) {
	in, r := newInput("a", 1, 1)

	require.NoError(t, in.StartComposition())
	require.NoError(t, in.UpdateComposition("k"))
	require.NoError(t, in.EndComposition("ka"))
	assert.Equal(t, []textsync.Event{
		textsync.CompositionStartEvent{},
		textsync.CompositionUpdateEvent{Text: "k"},
		textsync.CompositionEndEvent{Text: "ka"},
	}, r.events)
	assert.Equal(t, "a", in.Value())
}
