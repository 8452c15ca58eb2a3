package buffer

import (
	"strings"

	"golang.org/x/exp/slices"
)

// displayChunk bounds how many codepoints are encoded per step when building
// the display string of a line.
const displayChunk = 4096

// Line owns the content of one document line as a sequence of codepoints.
// The content is only ever changed through ApplyPatch, which keeps the UTF-16
// offset index coherent with it.
type Line struct {
	codepoints []rune
	// dirty is set whenever codepoints changed since the last ClearDirty.
	dirty bool
	// offsets[i] is the UTF-16 offset of codepoint i. It holds one trailing
	// entry with the total length in code units. Only meaningful when indexed
	// is true; the backing array is reused across rebuilds.
	offsets []int
	indexed bool
}

// NewLine creates a line holding the codepoints of s.
func NewLine(s string) *Line {
	return &Line{codepoints: []rune(s), dirty: true}
}

// NewLineFromCodepoints creates a line holding a copy of cps.
func NewLineFromCodepoints(cps []rune) *Line {
	return &Line{codepoints: slices.Clone(cps), dirty: true}
}

// Len returns the number of codepoints in the line.
func (l *Line) Len() int {
	return len(l.codepoints)
}

// Codepoints returns a copy of the line content.
func (l *Line) Codepoints() []rune {
	return slices.Clone(l.codepoints)
}

// Slice returns a copy of the codepoints in [start, end), clamped to the line.
func (l *Line) Slice(start, end int) []rune {
	start = clamp(start, 0, len(l.codepoints))
	end = clamp(end, start, len(l.codepoints))
	return slices.Clone(l.codepoints[start:end])
}

// Dirty reports whether the content changed since the last ClearDirty.
func (l *Line) Dirty() bool {
	return l.dirty
}

// ClearDirty is called once state derived from the content has been rebuilt.
func (l *Line) ClearDirty() {
	l.dirty = false
}

// ApplyPatch splices p into the line in place. Only the tail after the
// replaced range is shifted; the head is never copied.
func (l *Line) ApplyPatch(p Patch) error {
	if err := p.Validate(len(l.codepoints)); err != nil {
		return err
	}

	n := len(l.codepoints)
	delta := len(p.Replacement) - (p.End - p.Start)
	switch {
	case delta > 0:
		l.codepoints = slices.Grow(l.codepoints, delta)[:n+delta]
		copy(l.codepoints[p.End+delta:], l.codepoints[p.End:n])
	case delta < 0:
		copy(l.codepoints[p.End+delta:], l.codepoints[p.End:n])
		l.codepoints = l.codepoints[:n+delta]
	}
	copy(l.codepoints[p.Start:], p.Replacement)

	l.dirty = true
	l.indexed = false
	return nil
}

// buildOffsetIndex computes the UTF-16 offset of every codepoint in one pass.
func (l *Line) buildOffsetIndex() {
	l.offsets = slices.Grow(l.offsets[:0], len(l.codepoints)+1)
	off := 0
	l.offsets = append(l.offsets, off)
	for _, r := range l.codepoints {
		off += utf16Width(r)
		l.offsets = append(l.offsets, off)
	}
	l.indexed = true
}

func (l *Line) offsetIndex() []int {
	if !l.indexed {
		l.buildOffsetIndex()
	}
	return l.offsets
}

// UTF16Len returns the length of the line in UTF-16 code units.
func (l *Line) UTF16Len() int {
	idx := l.offsetIndex()
	return idx[len(idx)-1]
}

// CodepointToUTF16 converts a codepoint index to a UTF-16 offset. The index
// is clamped to [0, Len()].
func (l *Line) CodepointToUTF16(i int) int {
	idx := l.offsetIndex()
	return idx[clamp(i, 0, len(idx)-1)]
}

// UTF16ToCodepoint converts a UTF-16 offset to a codepoint index. The offset
// is clamped to the line. An offset inside a surrogate pair maps to the
// codepoint the pair encodes.
func (l *Line) UTF16ToCodepoint(u int) int {
	idx := l.offsetIndex()
	u = clamp(u, 0, idx[len(idx)-1])
	i, found := slices.BinarySearch(idx, u)
	if !found {
		i--
	}
	return i
}

// String returns the line content as text. Long lines are encoded in bounded
// chunks.
func (l *Line) String() string {
	var b strings.Builder
	for start := 0; start < len(l.codepoints); start += displayChunk {
		end := min(start+displayChunk, len(l.codepoints))
		chunk := l.codepoints[start:end]
		b.Grow(len(chunk))
		for _, r := range chunk {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
