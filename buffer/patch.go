package buffer

import (
	"errors"
	"fmt"
)

// NoCursor marks a patch or result that leaves the cursor placement to the caller.
const NoCursor = -1

// ErrPatchRange is returned when a patch does not fit the line it is applied to.
var ErrPatchRange = errors.New("patch range out of bounds")

// Patch is a range-replace edit expressed in codepoint indices. [Start, End) is
// removed and Replacement is inserted in its place.
type Patch struct {
	Start int
	// End is exclusive.
	End         int
	Replacement []rune
	// NewCursor is the codepoint index of the cursor after the patch is applied,
	// or NoCursor.
	NewCursor int
}

// Insert creates a patch inserting cps at the given index.
func Insert(at int, cps []rune) Patch {
	return Patch{Start: at, End: at, Replacement: cps, NewCursor: at + len(cps)}
}

// Delete creates a patch removing [start, end).
func Delete(start, end int) Patch {
	return Patch{Start: start, End: end, NewCursor: start}
}

// Replace creates a patch replacing [start, end) with cps.
func Replace(start, end int, cps []rune) Patch {
	return Patch{Start: start, End: end, Replacement: cps, NewCursor: start + len(cps)}
}

// Inverse returns the patch undoing p, given the codepoints p removed.
func (p Patch) Inverse(replaced []rune) Patch {
	return Patch{
		Start:       p.Start,
		End:         p.Start + len(p.Replacement),
		Replacement: replaced,
		NewCursor:   p.Start + len(replaced),
	}
}

// IsEmpty reports whether applying p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Start == p.End && len(p.Replacement) == 0
}

// Validate checks that p can be applied to a line of the given length.
func (p Patch) Validate(length int) error {
	if p.Start < 0 || p.Start > p.End || p.End > length {
		return fmt.Errorf("%w: [%d, %d) on length %d", ErrPatchRange, p.Start, p.End, length)
	}
	return nil
}

// Diff returns the single-range patch turning old into new. The common prefix
// and suffix are kept out of the replaced range, so the patch is minimal for
// the usual single edit. The cursor is left to the caller.
func Diff(old, new []rune) Patch {
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix &&
		old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}

	replacement := make([]rune, len(new)-prefix-suffix)
	copy(replacement, new[prefix:len(new)-suffix])
	return Patch{
		Start:       prefix,
		End:         len(old) - suffix,
		Replacement: replacement,
		NewCursor:   NoCursor,
	}
}
