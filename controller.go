// Package textsync keeps a column of single-line text widgets in sync with an
// authoritative document engine.
//
// Widgets count text in UTF-16 code units while the engine counts codepoints.
// The Controller owns one widget per line, forwards widget input to the
// engine in order, converts positions at the boundary, and renders whatever
// the engine answers. Engine calls run off the UI goroutine; their results
// are applied by Update, which must be called from the goroutine that owns
// the widgets.
package textsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oligo/textsync/buffer"
	"github.com/oligo/textsync/charset"
	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/mirror"
	"github.com/oligo/textsync/overlay"
)

// ErrNoSuchLine is returned for a line index outside the document, or for an
// event posted by the widget of a removed line.
var ErrNoSuchLine = errors.New("no such line")

// Executor runs a task, usually on another goroutine.
type Executor func(task func())

// Option configures a Controller.
type Option func(c *Controller)

// WithLogger sets the logger of the controller.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l.WithGroup(logGroup)
	}
}

// WithOverlayClient enables overlay placement.
func WithOverlayClient(client *overlay.Client) Option {
	return func(c *Controller) {
		c.overlays = client
	}
}

// WithWidgetFactory sets how line widgets are created. The default creates
// MemWidgets.
func WithWidgetFactory(f WidgetFactory) Option {
	return func(c *Controller) {
		c.factory = f
	}
}

// WithSimpleChars sets the characters edited optimistically. Without this
// option the set is loaded from the engine by Load when the engine is an
// engine.SimpleCharSource.
func WithSimpleChars(set *charset.Set) Option {
	return func(c *Controller) {
		c.simple = set
	}
}

// WithExecutor sets how engine calls are run. The default starts a
// goroutine per call.
func WithExecutor(e Executor) Option {
	return func(c *Controller) {
		c.executor = e
	}
}

// WithNormalizeComposition controls NFC normalization of committed
// composition text. It is on by default.
func WithNormalizeComposition(enabled bool) Option {
	return func(c *Controller) {
		c.normalize = enabled
	}
}

// WithInvalidator sets a function called after an engine result is ready,
// typically to wake up the window so that Update runs.
func WithInvalidator(fn func()) Option {
	return func(c *Controller) {
		c.invalidate = fn
	}
}

// Controller synchronizes line widgets with an engine.
type Controller struct {
	engine     engine.Engine
	overlays   *overlay.Client
	simple     *charset.Set
	factory    WidgetFactory
	executor   Executor
	invalidate func()
	normalize  bool
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// lines is the registry of line widgets, in document order.
	lines   []*slot
	queue   []*task
	focused *slot
	style   mirror.Style

	// requests counts edit, selection, focus and structural calls in
	// flight. background counts role and overlay calls.
	requests   int
	background int
	// barrier is set while a split or join is in flight.
	barrier bool
	done    chan func()

	title    string
	composer string
}

func New(e engine.Engine, opts ...Option) *Controller {
	c := &Controller{
		engine:    e,
		factory:   NewMemWidget,
		executor:  func(task func()) { go task() },
		normalize: true,
		logger:    logger,
		done:      make(chan func(), 64),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the document from the engine and creates the line widgets.
// It blocks until the engine answers.
func (c *Controller) Load(ctx context.Context) error {
	if c.simple == nil {
		if src, ok := c.engine.(engine.SimpleCharSource); ok {
			set := &charset.Set{}
			if err := set.Load(ctx, src); err != nil {
				c.logger.Warn("optimistic edits disabled", "error", err)
			}
			c.simple = set
		}
	}

	layout, err := c.engine.ComputeDisplayList(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	c.render(layout)
	if len(c.lines) > 0 {
		line := min(max(layout.Cursor.Line, 0), len(c.lines)-1)
		s := c.lines[line]
		c.focus(s, layout.Cursor.Col, false)
		c.restoreSelection(s, line, layout)
	}
	return nil
}

// Close cancels engine calls in flight.
func (c *Controller) Close() {
	c.cancel()
}

// Update applies the engine results received so far and dispatches queued
// events. It never blocks.
func (c *Controller) Update() {
	for {
		select {
		case apply := <-c.done:
			apply()
		default:
			c.dispatch()
			return
		}
	}
}

// Wait applies engine results until no event is queued and no call is in
// flight, or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.dispatch()
		if c.idle() {
			return nil
		}
		select {
		case apply := <-c.done:
			apply()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) idle() bool {
	return len(c.queue) == 0 && c.requests == 0 && c.background == 0
}

// run executes call through the executor and hands the function it returns
// to the UI goroutine.
func (c *Controller) run(call func() func()) {
	c.executor(func() {
		apply := call()
		c.done <- apply
		if c.invalidate != nil {
			c.invalidate()
		}
	})
}

// Line is a read-only view of one line for rendering.
type Line struct {
	Widget   Widget
	Overlays *overlay.Layer
	Role     engine.Role
	Label    string
}

// Lines returns the lines in document order.
func (c *Controller) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, s := range c.lines {
		out[i] = Line{Widget: s.widget, Overlays: &s.layer, Role: s.role, Label: s.label}
	}
	return out
}

func (c *Controller) Len() int {
	return len(c.lines)
}

func (c *Controller) Title() string {
	return c.title
}

func (c *Controller) Composer() string {
	return c.composer
}

// Focused returns the index of the focused line, or -1.
func (c *Controller) Focused() int {
	if c.focused == nil {
		return -1
	}
	return c.index(c.focused)
}

// Text returns the last text of a line confirmed by the engine.
func (c *Controller) Text(line int) (string, error) {
	s, err := c.slot(line)
	if err != nil {
		return "", err
	}
	return s.buf.String(), nil
}

// State returns the synchronization state of a line.
func (c *Controller) State(line int) (State, error) {
	s, err := c.slot(line)
	if err != nil {
		return Idle, err
	}
	return s.phase, nil
}

// Widget returns the widget of a line.
func (c *Controller) Widget(line int) (Widget, error) {
	s, err := c.slot(line)
	if err != nil {
		return nil, err
	}
	return s.widget, nil
}

// Post queues an event for a line as if its widget had posted it.
func (c *Controller) Post(line int, ev Event) error {
	s, err := c.slot(line)
	if err != nil {
		return err
	}
	return s.Post(ev)
}

// HandleKey offers a key to the controller on behalf of a line widget.
func (c *Controller) HandleKey(line int, k Key) bool {
	s, err := c.slot(line)
	if err != nil {
		return false
	}
	return s.HandleKey(k)
}

// FocusAt focuses a line with the caret before codepoint col, as when an
// overlay anchored there is clicked.
func (c *Controller) FocusAt(line, col int) error {
	s, err := c.slot(line)
	if err != nil {
		return err
	}
	c.focus(s, col, true)
	c.dispatch()
	return nil
}

// SetMirrorStyle sets how the overlay client measures lines. Overlays of
// every line are placed again when the style changes.
func (c *Controller) SetMirrorStyle(style mirror.Style) {
	if style == c.style {
		return
	}
	c.style = style
	for _, s := range c.lines {
		c.placeOverlays(s)
	}
}

func (c *Controller) slot(line int) (*slot, error) {
	if line < 0 || line >= len(c.lines) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchLine, line)
	}
	return c.lines[line], nil
}

func (c *Controller) index(s *slot) int {
	for i, l := range c.lines {
		if l == s {
			return i
		}
	}
	return -1
}

func (c *Controller) newSlot() *slot {
	s := &slot{c: c, buf: buffer.NewLine("")}
	s.widget = c.factory(s)
	return s
}
