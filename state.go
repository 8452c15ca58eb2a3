package textsync

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrIllegalTransition is returned when an event is not valid in the current
// state of a line, such as a composition end without a composition start.
var ErrIllegalTransition = errors.New("illegal state transition")

// State is the synchronization state of one line widget.
type State uint8

const (
	// Idle lines have nothing in flight.
	Idle State = iota
	// Composing lines buffer input locally until the composition ends.
	Composing
	// Syncing lines wait for the engine to answer an edit.
	Syncing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Composing:
		return "Composing"
	case Syncing:
		return "Syncing"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

var transitions = map[State][]State{
	Idle:      {Composing, Syncing},
	Composing: {Composing, Syncing, Idle},
	Syncing:   {Idle},
}

func (s State) canTransition(to State) bool {
	return slices.Contains(transitions[s], to)
}

func illegal(what string, from State) error {
	return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, what, from)
}

// composition buffers the input of one composition sequence.
type composition struct {
	// start and end delimit, in codepoints, the text the composition
	// replaces.
	start int
	end   int
	text  string
}
