// Package report holds the results of find and rename runs and renders them
// as text, JSON, YAML or a table.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/pyimports/pkg/rewrite"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// StyleTag prefixes rewrite entries whose new lines are too long.
const StyleTag = "style:"

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatYAML, FormatTable}
}

// ValidateFormat returns ErrUnknownFormat unless name is a supported format.
func ValidateFormat(name string) error {
	if slices.Contains(Formats(), name) {
		return nil
	}

	return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
}

// Warning is a path that was skipped, with the reason.
type Warning struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// NewWarning builds a Warning from an error.
func NewWarning(path string, err error) Warning {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	return Warning{Path: path, Error: msg}
}

// Stats are the run counters shown in the summary line.
type Stats struct {
	Scanned   int   `json:"scanned" yaml:"scanned"`
	Matched   int   `json:"matched" yaml:"matched"`
	Rewritten int   `json:"rewritten,omitempty" yaml:"rewritten,omitempty"`
	BytesRead int64 `json:"bytes_read" yaml:"bytes_read"`
}

// Summary returns a one-line human readable description of s.
func (s Stats) Summary() string {
	return fmt.Sprintf("scanned %d files (%s), matched %d, rewritten %d",
		s.Scanned, humanize.Bytes(uint64(max(s.BytesRead, 0))), s.Matched, s.Rewritten) //nolint:gosec // clamped
}

// Find is the result of a find-imports run.
type Find struct {
	Root     string    `json:"root" yaml:"root"`
	Module   string    `json:"module" yaml:"module"`
	Strategy string    `json:"strategy" yaml:"strategy"`
	Paths    []string  `json:"paths" yaml:"paths"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Stats    Stats     `json:"stats" yaml:"stats"`
}

// Entry is one rewritten file.
type Entry struct {
	Path       string              `json:"path" yaml:"path"`
	Style      bool                `json:"style" yaml:"style"`
	Edits      []rewrite.Edit      `json:"edits" yaml:"edits"`
	Violations []rewrite.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
	Diff       string              `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// Label returns the text form of the entry: the path, tagged when the
// rewrite broke the line length rule.
func (e Entry) Label() string {
	if e.Style {
		return StyleTag + " " + e.Path
	}

	return e.Path
}

// Rewrite is the result of a rename-imports run. Entries keep the order in
// which files were visited.
type Rewrite struct {
	Root     string    `json:"root" yaml:"root"`
	Old      string    `json:"old" yaml:"old"`
	New      string    `json:"new" yaml:"new"`
	Strategy string    `json:"strategy" yaml:"strategy"`
	DryRun   bool      `json:"dry_run" yaml:"dry_run"`
	Entries  []Entry   `json:"entries" yaml:"entries"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Stats    Stats     `json:"stats" yaml:"stats"`
}

// StyleCount returns the number of entries tagged with StyleTag.
func (r *Rewrite) StyleCount() int {
	count := 0

	for _, e := range r.Entries {
		if e.Style {
			count++
		}
	}

	return count
}
