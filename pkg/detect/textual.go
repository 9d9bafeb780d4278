package detect

import (
	"context"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
)

// Textual detects imports by matching the plain and from-import patterns
// against raw source. It performs no syntax validation: text inside strings or
// comments may match, and statements split over continuation lines may not.
type Textual struct {
	set *pattern.Set
}

// NewTextual creates a textual detector for a compiled matcher set.
func NewTextual(set *pattern.Set) *Textual {
	return &Textual{set: set}
}

// Name returns the strategy name.
func (t *Textual) Name() string {
	return StrategyPattern
}

// Module returns the target identifier.
func (t *Textual) Module() module.Identifier {
	return t.set.Module
}

// Patterns returns the matcher set in use.
func (t *Textual) Patterns() *pattern.Set {
	return t.set
}

// Detect returns every pattern match in src. It never fails.
func (t *Textual) Detect(_ context.Context, _ string, src []byte) (Findings, error) {
	if !t.set.Matches(src) {
		return nil, nil
	}

	matches := t.set.Find(src)
	if len(matches) == 0 {
		return nil, nil
	}

	findings := make(Findings, 0, len(matches))

	for _, m := range matches {
		kind := KindImport
		if m.Kind == pattern.KindFrom {
			kind = KindFrom
		}

		findings = append(findings, Finding{Kind: kind, Line: m.Line, Module: m.Module})
	}

	return findings, nil
}
