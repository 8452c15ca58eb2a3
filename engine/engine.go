// Package engine describes the authoritative document engine that owns line
// content, structure and overlay placement. The synchronization layer only
// consumes it through the Engine interface.
//
// All character indices crossing this boundary are codepoint counts, never
// UTF-16 code units.
package engine

import (
	"context"
	"errors"
)

// NoCursor marks an absent cursor index.
const NoCursor = -1

// ErrLineOutOfRange is returned by engines for a line index the document does
// not have.
var ErrLineOutOfRange = errors.New("line index out of range")

// Engine is the request/response contract of the authoritative engine.
type Engine interface {
	// SetLineText submits the text of a line as typed into its widget. The
	// result holds the authoritative text, which may differ from the input.
	SetLineText(ctx context.Context, line int, text string, cursor int) (LineResult, error)
	// SplitLine breaks a line in two at the cursor.
	SplitLine(ctx context.Context, line int, cursor int) (Layout, error)
	// JoinLines appends a line to the previous one and removes it.
	JoinLines(ctx context.Context, line int) (Layout, error)
	// SetSelection pushes the current selection.
	SetSelection(ctx context.Context, anchor, head Pos) error
	// ComputeDisplayList returns the whole document layout.
	ComputeDisplayList(ctx context.Context) (Layout, error)
	// ResolveOverlayPlacement turns measured anchor positions into final
	// horizontal placements. The result is a pure function of its inputs.
	ResolveOverlayPlacement(ctx context.Context, line int, positions []AnchorPosition, widths []ContentWidth) ([]OverlayItem, error)
	// LineRole reports how a line is used, for the side indicator.
	LineRole(ctx context.Context, line int) (Role, error)
}

// SimpleCharSource is implemented by engines that can list the characters
// they pass through unchanged.
type SimpleCharSource interface {
	SimpleChars(ctx context.Context) ([]rune, error)
}

// Pos is a line/column position, the column counted in codepoints.
type Pos struct {
	Line int
	Col  int
}

// Range is a codepoint range within a line. Start may be after End.
type Range struct {
	Start int
	End   int
}

// Selection is an anchor/head pair. A collapsed selection is a cursor.
type Selection struct {
	Anchor Pos
	Head   Pos
}

// Collapsed reports whether the selection is a plain cursor.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Head
}

// LineResult is the engine's answer to SetLineText.
type LineResult struct {
	Text string
	// Cursor is the codepoint index of the cursor, or NoCursor.
	Cursor    int
	Selection *Range
	// Overlays are the annotations currently anchored on the line.
	Overlays []OverlayAnchor
}

// Layout is the multi-line state of the document.
type Layout struct {
	Lines []LineDisplay
	// Cursor is where the engine placed the cursor after the request.
	Cursor    Pos
	Selection *Selection
	Title     string
	Composer  string
}

// LineDisplay is what one line widget has to show.
type LineDisplay struct {
	Text      string
	Cursor    int
	Selection *Range
	Label     string
	Overlays  []OverlayAnchor
}

// OverlayKind names a family of annotations.
type OverlayKind string

const (
	// OverlayLyric is a syllable under a note. Lyrics are width sensitive.
	OverlayLyric OverlayKind = "lyric"
	// OverlayTala is a rhythm marker above a beat.
	OverlayTala OverlayKind = "tala"
)

// WidthSensitive reports whether placement of the kind depends on the
// rendered width of its content.
func (k OverlayKind) WidthSensitive() bool {
	return k == OverlayLyric
}

// OverlayAnchor is an annotation attached to a codepoint of a line.
type OverlayAnchor struct {
	Kind      OverlayKind
	CharIndex int
	Content   string
}

// AnchorPosition is the measured x offset, in pixels relative to the widget
// content box, of a codepoint.
type AnchorPosition struct {
	CharIndex int
	X         float32
}

// ContentWidth is the measured rendered width of an annotation's content.
type ContentWidth struct {
	CharIndex int
	Content   string
	Width     float32
}

// OverlayItem is a placed annotation. X is final.
type OverlayItem struct {
	Kind      OverlayKind
	CharIndex int
	Content   string
	X         float32
}

// RoleKind classifies a line.
type RoleKind string

const (
	RoleMelody RoleKind = "melody"
	RoleLyrics RoleKind = "lyrics"
	RoleText   RoleKind = "text"
)

// Role is the read-only classification shown next to a line.
type Role struct {
	Kind RoleKind
	// GroupCount is the number of beat groups on the line, zero when unknown.
	GroupCount int
}
