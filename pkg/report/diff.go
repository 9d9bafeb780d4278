package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff returns a line-oriented diff of before and after labelled with
// path. Only changed lines are shown, each run preceded by an "@@ -old +new @@"
// header with 1-based line numbers. Identical inputs yield "".
func LineDiff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var buf strings.Builder

	fmt.Fprintf(&buf, "--- a/%s\n+++ b/%s\n", path, path)

	oldLine, newLine := 1, 1
	inRun := false

	for _, d := range diffs {
		chunk := splitLines(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldLine += len(chunk)
			newLine += len(chunk)
			inRun = false
		case diffmatchpatch.DiffDelete:
			if !inRun {
				fmt.Fprintf(&buf, "@@ -%d +%d @@\n", oldLine, newLine)
				inRun = true
			}

			for _, line := range chunk {
				buf.WriteString("-" + line + "\n")
			}

			oldLine += len(chunk)
		case diffmatchpatch.DiffInsert:
			if !inRun {
				fmt.Fprintf(&buf, "@@ -%d +%d @@\n", oldLine, newLine)
				inRun = true
			}

			for _, line := range chunk {
				buf.WriteString("+" + line + "\n")
			}

			newLine += len(chunk)
		}
	}

	return buf.String()
}

// splitLines splits text into lines without terminators. A trailing newline
// does not produce an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
