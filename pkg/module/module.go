// Package module defines the dotted module identifier used to select imports.
package module

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Separator joins the segments of a dotted module path.
const Separator = "."

// Sentinel errors for identifier parsing.
var (
	ErrEmptyIdentifier   = errors.New("module identifier is empty")
	ErrInvalidIdentifier = errors.New("invalid module identifier")
)

// Identifier is a dotted module path such as "a.b.c".
type Identifier string

// Parse validates raw and returns it as an Identifier.
// Every dot-separated segment must be a valid Python identifier.
func Parse(raw string) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyIdentifier
	}

	for segment := range strings.SplitSeq(trimmed, Separator) {
		if !isIdentifierSegment(segment) {
			return "", fmt.Errorf("%w: %q (bad segment %q)", ErrInvalidIdentifier, raw, segment)
		}
	}

	return Identifier(trimmed), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Identifier {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return id
}

// String returns the dotted path.
func (id Identifier) String() string {
	return string(id)
}

// Covers reports whether name is id itself or one of its submodules.
// "foo" covers "foo" and "foo.bar" but not "foobar".
func (id Identifier) Covers(name string) bool {
	if id == "" {
		return false
	}

	target := string(id)
	if name == target {
		return true
	}

	return strings.HasPrefix(name, target+Separator)
}

// IsSubmoduleOf reports whether id lives strictly below parent.
func (id Identifier) IsSubmoduleOf(parent Identifier) bool {
	return id != parent && parent.Covers(string(id))
}

func isIdentifierSegment(segment string) bool {
	if segment == "" {
		return false
	}

	for i, r := range segment {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}

	return true
}
