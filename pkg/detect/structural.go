package detect

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
)

// GrammarPython is the only grammar the structural detector understands.
const GrammarPython = "python"

// enryPython is the language name enry reports for Python sources.
const enryPython = "Python"

// Node types and fields of the tree-sitter python grammar.
const (
	nodeImport       = "import_statement"
	nodeImportFrom   = "import_from_statement"
	nodeFutureImport = "future_import_statement"
	nodeDottedName   = "dotted_name"
	nodeAliasedName  = "aliased_import"
	nodeRelative     = "relative_import"
	nodeError        = "ERROR"

	fieldName       = "name"
	fieldModuleName = "module_name"

	futureModule = "__future__"
)

var errPoolType = errors.New("unexpected parser pool type")

var pythonLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(python.GetLanguage())
})

// StructuralOptions configure the structural detector.
type StructuralOptions struct {
	// Grammars maps lower-case file extensions (".py") to grammar names.
	// Nil uses DefaultGrammars.
	Grammars map[string]string
	// TolerateErrors inspects the error-free import statements of a file with
	// syntax errors instead of failing with ErrParse.
	TolerateErrors bool
}

// DefaultGrammars returns the default extension to grammar mapping.
// Enaml is a Python superset; files using its extensions fail to parse.
func DefaultGrammars() map[string]string {
	return map[string]string{
		".py":    GrammarPython,
		".pyi":   GrammarPython,
		".enaml": GrammarPython,
	}
}

// Structural detects imports by walking the tree-sitter syntax tree.
type Structural struct {
	id       module.Identifier
	grammars map[string]string
	tolerate bool
	parsers  sync.Pool
}

// NewStructural creates a structural detector for id.
func NewStructural(id module.Identifier, opts StructuralOptions) *Structural {
	grammars := opts.Grammars
	if grammars == nil {
		grammars = DefaultGrammars()
	}

	normalized := make(map[string]string, len(grammars))
	for ext, grammar := range grammars {
		normalized[strings.ToLower(ext)] = strings.ToLower(grammar)
	}

	s := &Structural{
		id:       id,
		grammars: normalized,
		tolerate: opts.TolerateErrors,
	}

	s.parsers.New = func() any {
		tsParser := sitter.NewParser()
		tsParser.SetLanguage(pythonLanguage())

		return tsParser
	}

	return s
}

// Name returns the strategy name.
func (s *Structural) Name() string {
	return StrategyStructural
}

// Module returns the target identifier.
func (s *Structural) Module() module.Identifier {
	return s.id
}

// Detect parses src and returns the import statements that import the target
// module or one of its submodules. Relative imports are never reported.
func (s *Structural) Detect(ctx context.Context, path string, src []byte) (Findings, error) {
	err := s.checkLanguage(path, src)
	if err != nil {
		return nil, err
	}

	tsParser, ok := s.parsers.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer s.parsers.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, &ParseError{Path: path}
	}

	if root.HasError() && !s.tolerate {
		return nil, &ParseError{Path: path, Line: firstErrorLine(root)}
	}

	var findings Findings

	s.visit(root, src, &findings)

	return findings, nil
}

func (s *Structural) checkLanguage(path string, src []byte) error {
	ext := strings.ToLower(filepath.Ext(path))
	if grammar, ok := s.grammars[ext]; ok {
		if grammar == GrammarPython {
			return nil
		}

		return fmt.Errorf("%w: %s (grammar %q)", ErrUnsupportedLanguage, path, grammar)
	}

	lang := enry.GetLanguage(filepath.Base(path), src)
	if lang == enryPython {
		return nil
	}

	if lang == "" {
		lang = "unknown"
	}

	return fmt.Errorf("%w: %s (%s)", ErrUnsupportedLanguage, path, lang)
}

// visit descends the whole tree so imports nested in functions, conditionals
// and try blocks are seen. Each import node is checked exactly once.
func (s *Structural) visit(tsNode sitter.Node, src []byte, findings *Findings) {
	switch tsNode.Type() {
	case nodeImport:
		s.checkImport(tsNode, src, findings)

		return
	case nodeImportFrom:
		s.checkImportFrom(tsNode, src, findings)

		return
	case nodeFutureImport:
		if !tsNode.HasError() && s.id.Covers(futureModule) {
			*findings = append(*findings, Finding{Kind: KindFuture, Line: startLine(tsNode), Module: futureModule})
		}

		return
	}

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)
		if !child.IsNull() {
			s.visit(child, src, findings)
		}
	}
}

// checkImport handles "import a.b, c as d".
func (s *Structural) checkImport(tsNode sitter.Node, src []byte, findings *Findings) {
	if tsNode.HasError() {
		return
	}

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)

		var name string

		switch child.Type() {
		case nodeDottedName:
			name = dottedName(child, src)
		case nodeAliasedName:
			nameNode := child.ChildByFieldName(fieldName)
			if nameNode.IsNull() {
				continue
			}

			name = dottedName(nameNode, src)
		default:
			continue
		}

		if s.id.Covers(name) {
			*findings = append(*findings, Finding{Kind: KindImport, Line: startLine(tsNode), Module: name})
		}
	}
}

// checkImportFrom handles "from a.b import c". Relative module names are
// skipped: resolving them needs package layout knowledge.
func (s *Structural) checkImportFrom(tsNode sitter.Node, src []byte, findings *Findings) {
	if tsNode.HasError() {
		return
	}

	moduleNode := tsNode.ChildByFieldName(fieldModuleName)
	if moduleNode.IsNull() || moduleNode.Type() == nodeRelative {
		return
	}

	name := dottedName(moduleNode, src)
	if s.id.Covers(name) {
		*findings = append(*findings, Finding{Kind: KindFrom, Line: startLine(tsNode), Module: name})
	}
}

// dottedName returns the node text without whitespace or line continuations.
func dottedName(tsNode sitter.Node, src []byte) string {
	return strings.Map(func(r rune) rune {
		if r == '\\' || unicode.IsSpace(r) {
			return -1
		}

		return r
	}, tsNode.Content(src))
}

func startLine(tsNode sitter.Node) int {
	return int(tsNode.StartPoint().Row) + 1 //nolint:gosec // tree-sitter rows fit in int
}

// firstErrorLine returns the line of the first ERROR node, or of the deepest
// node still flagged with an error when the problem is a missing token.
func firstErrorLine(tsNode sitter.Node) int {
	if tsNode.Type() == nodeError {
		return startLine(tsNode)
	}

	for idx := range tsNode.ChildCount() {
		child := tsNode.Child(idx)
		if child.IsNull() || !child.HasError() {
			continue
		}

		return firstErrorLine(child)
	}

	return startLine(tsNode)
}
