// Package detect reports where a source file imports a module. Two strategies
// implement the same Detector interface: Structural parses the file with
// tree-sitter, Textual matches import patterns over the raw text.
package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
)

// Strategy names accepted by New.
const (
	StrategyPattern    = "pattern"
	StrategyStructural = "structural"
)

// Sentinel errors for detection.
var (
	// ErrParse marks source that is not valid syntax for its language.
	ErrParse = errors.New("parse failure")
	// ErrUnsupportedLanguage marks files with no grammar for structural analysis.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrUnknownStrategy is returned by New for unrecognised strategy names.
	ErrUnknownStrategy = errors.New("unknown detection strategy")
)

// Kind is the import statement form of a finding.
type Kind string

// Statement forms.
const (
	KindImport Kind = "import"
	KindFrom   Kind = "from"
	KindFuture Kind = "future"
)

// Finding is one import of the target module.
type Finding struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Line is the 1-based line where the statement starts.
	Line int `json:"line" yaml:"line"`
	// Module is the imported dotted name.
	Module string `json:"module" yaml:"module"`
}

// Findings are the imports of one file in source order.
type Findings []Finding

// Found reports whether any import was detected.
func (f Findings) Found() bool {
	return len(f) > 0
}

// Lines returns the set of lines holding a finding.
func (f Findings) Lines() map[int]bool {
	lines := make(map[int]bool, len(f))
	for _, finding := range f {
		lines[finding.Line] = true
	}

	return lines
}

// Detector reports the imports of a target module in one file.
// Implementations must be safe for concurrent use.
type Detector interface {
	// Name returns the strategy name.
	Name() string
	// Module returns the target identifier.
	Module() module.Identifier
	// Detect inspects src, the full content of the file at path.
	Detect(ctx context.Context, path string, src []byte) (Findings, error)
}

// ParseError describes a file that failed structural parsing.
type ParseError struct {
	Path string
	// Line is the 1-based line of the first syntax error, 0 when unknown.
	Line int
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, ErrParse)
	}

	return fmt.Sprintf("%s: %s", e.Path, ErrParse)
}

// Is lets errors.Is match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Options configure New.
type Options struct {
	// Patterns supplies compiled matcher sets; nil compiles a fresh set.
	Patterns *pattern.Cache
	// Structural configures the structural strategy.
	Structural StructuralOptions
}

// New returns the detector for strategy.
func New(strategy string, id module.Identifier, opts Options) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyPattern:
		set := pattern.New(id)
		if opts.Patterns != nil {
			set = opts.Patterns.Get(id)
		}

		return NewTextual(set), nil
	case StrategyStructural:
		return NewStructural(id, opts.Structural), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}
