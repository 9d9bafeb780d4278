// Package pattern builds the textual matchers for plain and from-import statements
// of a module identifier.
package pattern

import (
	"bytes"
	"regexp"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
)

// Capture group indexes shared by both matchers.
const (
	groupLead = iota + 1
	groupKeyword
	groupSuffix
	groupTail
	groupCount
)

// leadPattern allows indentation and a doctest prompt so imports inside
// reStructuredText examples are matched too.
const leadPattern = `(?m)^([ \t]*(?:(?:>>>|\.\.\.)[ \t]+)?)`

// Templates around the quoted identifier. The suffix group only admits dotted
// submodule segments and the tail must start at an identifier boundary, so
// "import foo" never matches "import foobar" or "import fooé". Identifier
// characters are Unicode letters, digits and underscore.
const (
	plainKeyword = `(import[ \t]+)`
	plainTail    = `((?:\.[\p{L}\p{N}_]+)*)((?:[^\p{L}\p{N}_.\n].*)?)$`
	fromKeyword  = `(from[ \t]+)`
	fromTail     = `((?:\.[\p{L}\p{N}_]+)*)([ \t]+import(?:[ \t]*[^\p{L}\p{N}_ \t\n]|[ \t]+\S).*)$`
)

var newline = []byte{'\n'}

// Kind distinguishes the two statement forms.
type Kind int

const (
	// KindImport is "import X...".
	KindImport Kind = iota
	// KindFrom is "from X import ...".
	KindFrom
)

// String returns the statement keyword.
func (k Kind) String() string {
	if k == KindFrom {
		return "from"
	}

	return "import"
}

// Set is the compiled matcher pair for one module identifier. Sets are never
// mutated; build a new one when the identifier changes.
type Set struct {
	Module module.Identifier
	Plain  *regexp.Regexp
	From   *regexp.Regexp
}

// Match is one matched statement line.
type Match struct {
	Kind Kind
	// Line is 1-based.
	Line int
	// Start and End are byte offsets of the whole matched line.
	Start int
	End   int
	// Module is the imported dotted name, submodule suffix included.
	Module string
	// Lead, Keyword, Suffix and Tail are the captured parts of the line.
	Lead    string
	Keyword string
	Suffix  string
	Tail    string
}

// New compiles the matcher pair for id. The identifier is quoted so it is
// always treated as a literal prefix.
func New(id module.Identifier) *Set {
	quoted := regexp.QuoteMeta(id.String())

	return &Set{
		Module: id,
		Plain:  regexp.MustCompile(leadPattern + plainKeyword + quoted + plainTail),
		From:   regexp.MustCompile(leadPattern + fromKeyword + quoted + fromTail),
	}
}

// Regexp returns the matcher for kind.
func (s *Set) Regexp(kind Kind) *regexp.Regexp {
	if kind == KindFrom {
		return s.From
	}

	return s.Plain
}

// Matches reports whether src contains a plain or from-import of the module.
// The plain matcher is tried first.
func (s *Set) Matches(src []byte) bool {
	return s.Plain.Match(src) || s.From.Match(src)
}

// Find returns every plain and from-import match in src ordered by position.
func (s *Set) Find(src []byte) []Match {
	plain := s.FindKind(src, KindImport)
	from := s.FindKind(src, KindFrom)

	if len(from) == 0 {
		return plain
	}

	if len(plain) == 0 {
		return from
	}

	merged := make([]Match, 0, len(plain)+len(from))

	i, j := 0, 0
	for i < len(plain) && j < len(from) {
		if plain[i].Start <= from[j].Start {
			merged = append(merged, plain[i])
			i++
		} else {
			merged = append(merged, from[j])
			j++
		}
	}

	merged = append(merged, plain[i:]...)

	return append(merged, from[j:]...)
}

// FindKind returns the matches of a single statement form.
func (s *Set) FindKind(src []byte, kind Kind) []Match {
	locs := s.Regexp(kind).FindAllSubmatchIndex(src, -1)
	if len(locs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(locs))
	line := 1
	scanned := 0

	for _, loc := range locs {
		line += bytes.Count(src[scanned:loc[0]], newline)
		scanned = loc[0]

		m := Match{
			Kind:    kind,
			Line:    line,
			Start:   loc[0],
			End:     loc[1],
			Lead:    group(src, loc, groupLead),
			Keyword: group(src, loc, groupKeyword),
			Suffix:  group(src, loc, groupSuffix),
			Tail:    group(src, loc, groupTail),
		}
		m.Module = s.Module.String() + m.Suffix

		matches = append(matches, m)
	}

	return matches
}

func group(src []byte, loc []int, idx int) string {
	if idx >= groupCount || 2*idx+1 >= len(loc) || loc[2*idx] < 0 {
		return ""
	}

	return string(src[loc[2*idx]:loc[2*idx+1]])
}
