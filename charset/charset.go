// Package charset holds the set of characters an engine passes through
// unchanged. The set is an explicit value: build one with New or Load it from
// an engine at startup and hand it to the components that need it.
package charset

import (
	"context"
	"fmt"

	"github.com/oligo/textsync/engine"
)

// Set is a lookup of simple characters. The zero value and a nil *Set are
// empty.
type Set struct {
	chars  map[rune]struct{}
	loaded bool
}

// New creates a set holding chars.
func New(chars ...rune) *Set {
	s := &Set{}
	s.add(chars)
	s.loaded = true
	return s
}

// Load replaces the content of s with the characters reported by src.
func (s *Set) Load(ctx context.Context, src engine.SimpleCharSource) error {
	chars, err := src.SimpleChars(ctx)
	if err != nil {
		return fmt.Errorf("load simple chars: %w", err)
	}

	s.chars = nil
	s.add(chars)
	s.loaded = true
	return nil
}

func (s *Set) add(chars []rune) {
	if s.chars == nil {
		s.chars = make(map[rune]struct{}, len(chars))
	}
	for _, c := range chars {
		s.chars[c] = struct{}{}
	}
}

// Loaded reports whether the set was initialized.
func (s *Set) Loaded() bool {
	return s != nil && s.loaded
}

// Contains reports whether r is a simple character.
func (s *Set) Contains(r rune) bool {
	if s == nil {
		return false
	}
	_, ok := s.chars[r]
	return ok
}

// Simple reports whether text is non-empty and made only of simple characters.
func (s *Set) Simple(text string) bool {
	if s == nil || text == "" {
		return false
	}
	for _, r := range text {
		if !s.Contains(r) {
			return false
		}
	}
	return true
}

// Len returns the number of characters in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chars)
}
