// Package rewrite computes import renames as pure text transformations and
// evaluates the rewritten lines against the line-length style rule.
package rewrite

import (
	"strings"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
)

// Edit is one rewritten statement line.
type Edit struct {
	// Line is the 1-based line number in the rewritten source.
	Line   int    `json:"line" yaml:"line"`
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// Options tune Apply.
type Options struct {
	// Lines restricts rewriting to these 1-based lines. Nil allows every line.
	Lines map[int]bool
	// FirstMatchOnly runs the from-import pass only when the plain-import pass
	// changed nothing.
	FirstMatchOnly bool
}

// Result is the outcome of Apply.
type Result struct {
	Source  []byte
	Edits   []Edit
	Changed bool
}

// Apply rewrites the statements of src matched by old so they reference
// newID. The plain-import matcher runs first, then the from-import matcher.
// Everything after the module name is carried over verbatim.
//
// When newID is a submodule of the old identifier, statements that already
// reference newID are left alone so that applying the rename twice is a no-op.
// Renaming a module to itself changes nothing.
func Apply(src []byte, old *pattern.Set, newID module.Identifier, opts Options) Result {
	if old.Module == newID {
		return Result{Source: src}
	}

	guard := alreadyRenamed(old.Module, newID)

	current := src

	var edits []Edit

	for _, kind := range []pattern.Kind{pattern.KindImport, pattern.KindFrom} {
		if kind == pattern.KindFrom && opts.FirstMatchOnly && len(edits) > 0 {
			break
		}

		next, kindEdits := applyKind(current, old, kind, newID, opts.Lines, guard)
		current = next
		edits = append(edits, kindEdits...)
	}

	if len(edits) == 0 {
		return Result{Source: src}
	}

	sortEdits(edits)

	return Result{Source: current, Edits: edits, Changed: true}
}

// applyKind substitutes every allowed match of one statement form.
// Substitution never adds or removes newlines, so line numbers are stable
// across both passes.
func applyKind(
	src []byte, old *pattern.Set, kind pattern.Kind, newID module.Identifier,
	lines map[int]bool, guard func(suffix string) bool,
) ([]byte, []Edit) { //nolint:whitespace // multi-line signature
	matches := old.FindKind(src, kind)
	if len(matches) == 0 {
		return src, nil
	}

	var (
		out   strings.Builder
		edits []Edit
		last  int
	)

	out.Grow(len(src) + len(matches)*len(newID))

	for _, m := range matches {
		if lines != nil && !lines[m.Line] {
			continue
		}

		if guard(m.Suffix) {
			continue
		}

		after := m.Lead + m.Keyword + newID.String() + m.Suffix + m.Tail
		before := string(src[m.Start:m.End])

		out.Write(src[last:m.Start])
		out.WriteString(after)
		last = m.End

		edits = append(edits, Edit{
			Line:   m.Line,
			Before: strings.TrimSuffix(before, "\r"),
			After:  strings.TrimSuffix(after, "\r"),
		})
	}

	if len(edits) == 0 {
		return src, nil
	}

	out.Write(src[last:])

	return []byte(out.String()), edits
}

// alreadyRenamed returns a predicate over the captured submodule suffix that
// is true when the statement already points at newID (only possible when
// newID lives below the old identifier).
func alreadyRenamed(oldID, newID module.Identifier) func(string) bool {
	if !newID.IsSubmoduleOf(oldID) {
		return func(string) bool { return false }
	}

	extra := strings.TrimPrefix(newID.String(), oldID.String())

	return func(suffix string) bool {
		return suffix == extra || strings.HasPrefix(suffix, extra+module.Separator)
	}
}

func sortEdits(edits []Edit) {
	// Insertion sort: edits arrive as two already ordered runs.
	for i := 1; i < len(edits); i++ {
		for j := i; j > 0 && edits[j].Line < edits[j-1].Line; j-- {
			edits[j], edits[j-1] = edits[j-1], edits[j]
		}
	}
}
