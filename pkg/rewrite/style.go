package rewrite

import (
	"github.com/Sumatoshi-tech/pyimports/pkg/textutil"
)

// DefaultMaxLineLength is the PEP 8 line length limit.
const DefaultMaxLineLength = 79

// Violation is a rewritten line that exceeds the line length limit.
type Violation struct {
	Line   int    `json:"line" yaml:"line"`
	Length int    `json:"length" yaml:"length"`
	Max    int    `json:"max" yaml:"max"`
	Text   string `json:"text" yaml:"text"`
}

// CheckLineLength returns the edits whose rewritten line is longer than
// maxLen characters. Length counts runes, including indentation. A
// non-positive maxLen uses DefaultMaxLineLength.
func CheckLineLength(edits []Edit, maxLen int) []Violation {
	if maxLen <= 0 {
		maxLen = DefaultMaxLineLength
	}

	var violations []Violation

	for _, e := range edits {
		width := textutil.Width(e.After)
		if width <= maxLen {
			continue
		}

		violations = append(violations, Violation{
			Line:   e.Line,
			Length: width,
			Max:    maxLen,
			Text:   e.After,
		})
	}

	return violations
}
