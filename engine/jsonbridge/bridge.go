// Package jsonbridge adapts an engine that speaks JSON, such as one compiled
// to a foreign runtime or running out of process, to the engine.Engine
// interface.
//
// Requests are JSON objects with snake_case keys. Line displays carry their
// overlays split into "lyrics" and "talas" arrays of {char_index, content}.
package jsonbridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/oligo/textsync/engine"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var _ engine.Engine = (*Client)(nil)
var _ engine.SimpleCharSource = (*Client)(nil)

// ErrBadResponse is returned when the engine answers with malformed JSON or
// without a required field.
var ErrBadResponse = errors.New("bad engine response")

// Method names sent to the transport.
const (
	MethodSetLineText      = "setLineText"
	MethodSplitLine        = "splitLine"
	MethodJoinLines        = "joinLines"
	MethodSetSelection     = "setSelection"
	MethodDisplayList      = "getTextareaDisplayList"
	MethodResolvePlacement = "resolveOverlayPlacement"
	MethodLineRole         = "getLineRole"
	MethodSimpleChars      = "getSimpleChars"
)

// CallFunc sends one request and returns the raw JSON result.
type CallFunc func(ctx context.Context, method string, params []byte) ([]byte, error)

// Client is an engine.Engine backed by a CallFunc.
type Client struct {
	call CallFunc
}

func New(call CallFunc) *Client {
	return &Client{call: call}
}

func (c *Client) do(ctx context.Context, method string, params []byte) (gjson.Result, error) {
	if params == nil {
		params = []byte("{}")
	}
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s: %w: invalid JSON", method, ErrBadResponse)
	}
	res := gjson.ParseBytes(raw)
	if msg := res.Get("error"); msg.Exists() && msg.Type != gjson.Null {
		return gjson.Result{}, fmt.Errorf("%s: %s", method, msg.String())
	}
	return res, nil
}

// params builds a request object from key/value pairs.
func params(kv ...any) ([]byte, error) {
	out := []byte("{}")
	var err error
	for i := 0; i+1 < len(kv); i += 2 {
		out, err = sjson.SetBytes(out, kv[i].(string), kv[i+1])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cursorParam(cursor int) any {
	if cursor == engine.NoCursor {
		return nil
	}
	return cursor
}

func (c *Client) SetLineText(ctx context.Context, line int, text string, cursor int) (engine.LineResult, error) {
	p, err := params("line_index", line, "text", text, "cursor_pos", cursorParam(cursor))
	if err != nil {
		return engine.LineResult{}, err
	}
	res, err := c.do(ctx, MethodSetLineText, p)
	if err != nil {
		return engine.LineResult{}, err
	}

	d, err := parseLine(res)
	if err != nil {
		return engine.LineResult{}, fmt.Errorf("%s: %w", MethodSetLineText, err)
	}
	return engine.LineResult{
		Text:      d.Text,
		Cursor:    d.Cursor,
		Selection: d.Selection,
		Overlays:  d.Overlays,
	}, nil
}

func (c *Client) SplitLine(ctx context.Context, line int, cursor int) (engine.Layout, error) {
	p, err := params("line_index", line, "cursor_pos", cursor)
	if err != nil {
		return engine.Layout{}, err
	}
	return c.layout(ctx, MethodSplitLine, p)
}

func (c *Client) JoinLines(ctx context.Context, line int) (engine.Layout, error) {
	p, err := params("line_index", line)
	if err != nil {
		return engine.Layout{}, err
	}
	return c.layout(ctx, MethodJoinLines, p)
}

func (c *Client) SetSelection(ctx context.Context, anchor, head engine.Pos) error {
	p, err := params(
		"anchor.line", anchor.Line, "anchor.col", anchor.Col,
		"head.line", head.Line, "head.col", head.Col,
	)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, MethodSetSelection, p)
	return err
}

func (c *Client) ComputeDisplayList(ctx context.Context) (engine.Layout, error) {
	return c.layout(ctx, MethodDisplayList, nil)
}

func (c *Client) layout(ctx context.Context, method string, p []byte) (engine.Layout, error) {
	res, err := c.do(ctx, method, p)
	if err != nil {
		return engine.Layout{}, err
	}
	l, err := parseLayout(res)
	if err != nil {
		return engine.Layout{}, fmt.Errorf("%s: %w", method, err)
	}
	return l, nil
}

func (c *Client) ResolveOverlayPlacement(ctx context.Context, line int, positions []engine.AnchorPosition, widths []engine.ContentWidth) ([]engine.OverlayItem, error) {
	p, err := params("line_index", line)
	if err != nil {
		return nil, err
	}
	for i, pos := range positions {
		p, _ = sjson.SetBytes(p, fmt.Sprintf("positions.%d.char_index", i), pos.CharIndex)
		p, _ = sjson.SetBytes(p, fmt.Sprintf("positions.%d.x", i), pos.X)
	}
	for i, w := range widths {
		p, _ = sjson.SetBytes(p, fmt.Sprintf("widths.%d.char_index", i), w.CharIndex)
		p, _ = sjson.SetBytes(p, fmt.Sprintf("widths.%d.content", i), w.Content)
		p, _ = sjson.SetBytes(p, fmt.Sprintf("widths.%d.width", i), w.Width)
	}

	res, err := c.do(ctx, MethodResolvePlacement, p)
	if err != nil {
		return nil, err
	}
	items := res.Get("items")
	if !items.IsArray() {
		return nil, fmt.Errorf("%s: %w: missing items", MethodResolvePlacement, ErrBadResponse)
	}

	var out []engine.OverlayItem
	for _, it := range items.Array() {
		out = append(out, engine.OverlayItem{
			Kind:      engine.OverlayKind(it.Get("kind").String()),
			CharIndex: int(it.Get("char_index").Int()),
			Content:   it.Get("content").String(),
			X:         float32(it.Get("x").Float()),
		})
	}
	return out, nil
}

func (c *Client) LineRole(ctx context.Context, line int) (engine.Role, error) {
	p, err := params("line_index", line)
	if err != nil {
		return engine.Role{}, err
	}
	res, err := c.do(ctx, MethodLineRole, p)
	if err != nil {
		return engine.Role{}, err
	}
	kind := res.Get("kind")
	if !kind.Exists() {
		return engine.Role{}, fmt.Errorf("%s: %w: missing kind", MethodLineRole, ErrBadResponse)
	}
	return engine.Role{
		Kind:       engine.RoleKind(kind.String()),
		GroupCount: int(res.Get("group_count").Int()),
	}, nil
}

// SimpleChars accepts either a string or an array of one-character strings.
func (c *Client) SimpleChars(ctx context.Context) ([]rune, error) {
	res, err := c.do(ctx, MethodSimpleChars, nil)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		if res.Type != gjson.String {
			return nil, fmt.Errorf("%s: %w", MethodSimpleChars, ErrBadResponse)
		}
		return []rune(res.String()), nil
	}
	var out []rune
	for _, ch := range res.Array() {
		out = append(out, []rune(ch.String())...)
	}
	return out, nil
}

func parseLayout(res gjson.Result) (engine.Layout, error) {
	lines := res.Get("lines")
	if !lines.IsArray() {
		return engine.Layout{}, fmt.Errorf("%w: missing lines", ErrBadResponse)
	}

	out := engine.Layout{
		Title:    res.Get("title").String(),
		Composer: res.Get("composer").String(),
	}
	for i, l := range lines.Array() {
		d, err := parseLine(l)
		if err != nil {
			return engine.Layout{}, fmt.Errorf("line %d: %w", i, err)
		}
		if d.Cursor != engine.NoCursor {
			out.Cursor = engine.Pos{Line: i, Col: d.Cursor}
		}
		out.Lines = append(out.Lines, d)
	}

	// An explicit cursor wins over the per-line cursor_pos.
	if cur := res.Get("cursor"); cur.IsObject() {
		out.Cursor = engine.Pos{Line: int(cur.Get("line").Int()), Col: int(cur.Get("col").Int())}
	}
	if sel := res.Get("selection"); sel.IsObject() {
		out.Selection = &engine.Selection{
			Anchor: engine.Pos{Line: int(sel.Get("anchor.line").Int()), Col: int(sel.Get("anchor.col").Int())},
			Head:   engine.Pos{Line: int(sel.Get("head.line").Int()), Col: int(sel.Get("head.col").Int())},
		}
	}
	return out, nil
}

func parseLine(res gjson.Result) (engine.LineDisplay, error) {
	text := res.Get("text")
	if text.Type != gjson.String {
		return engine.LineDisplay{}, fmt.Errorf("%w: missing text", ErrBadResponse)
	}

	d := engine.LineDisplay{
		Text:   text.String(),
		Cursor: engine.NoCursor,
		Label:  res.Get("label").String(),
	}
	if cur := res.Get("cursor_pos"); cur.Type == gjson.Number {
		d.Cursor = int(cur.Int())
	}
	if sel := res.Get("selection"); sel.IsObject() {
		d.Selection = &engine.Range{Start: int(sel.Get("start").Int()), End: int(sel.Get("end").Int())}
	}

	overlays := func(key string, kind engine.OverlayKind) {
		res.Get(key).ForEach(func(_, v gjson.Result) bool {
			d.Overlays = append(d.Overlays, engine.OverlayAnchor{
				Kind:      kind,
				CharIndex: int(v.Get("char_index").Int()),
				Content:   v.Get("content").String(),
			})
			return true
		})
	}
	overlays("lyrics", engine.OverlayLyric)
	overlays("talas", engine.OverlayTala)

	return d, nil
}
