package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

// Options control rendering.
type Options struct {
	Format string
	// Color enables ANSI colouring of the style tag in text output.
	Color bool
	// ShowDiff prints each entry's diff after its label in text output.
	ShowDiff bool
}

// RenderFind writes f to w in the requested format. Text output is the
// newline-joined path list; an empty result writes nothing.
func RenderFind(w io.Writer, f *Find, opts Options) error {
	switch opts.Format {
	case "", FormatText:
		for _, p := range f.Paths {
			_, err := fmt.Fprintln(w, p)
			if err != nil {
				return fmt.Errorf("write paths: %w", err)
			}
		}

		return nil
	case FormatJSON:
		return writeJSON(w, f)
	case FormatYAML:
		return writeYAML(w, f)
	case FormatTable:
		return writeFindTable(w, f)
	default:
		return ValidateFormat(opts.Format)
	}
}

// RenderRewrite writes r to w in the requested format. Text output is one
// label per entry in visitation order.
func RenderRewrite(w io.Writer, r *Rewrite, opts Options) error {
	switch opts.Format {
	case "", FormatText:
		return writeRewriteText(w, r, opts)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	case FormatTable:
		return writeRewriteTable(w, r)
	default:
		return ValidateFormat(opts.Format)
	}
}

func writeRewriteText(w io.Writer, r *Rewrite, opts Options) error {
	tag := color.New(color.FgYellow, color.Bold)
	if opts.Color {
		tag.EnableColor()
	} else {
		tag.DisableColor()
	}

	for _, e := range r.Entries {
		label := e.Label()
		if e.Style {
			label = tag.Sprint(StyleTag) + strings.TrimPrefix(label, StyleTag)
		}

		_, err := fmt.Fprintln(w, label)
		if err != nil {
			return fmt.Errorf("write entry: %w", err)
		}

		if opts.ShowDiff && e.Diff != "" {
			_, err = io.WriteString(w, e.Diff)
			if err != nil {
				return fmt.Errorf("write diff: %w", err)
			}
		}
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func writeFindTable(w io.Writer, f *Find) error {
	tbl := newTable(w)
	tbl.SetTitle("Files importing " + f.Module)
	tbl.AppendHeader(table.Row{"#", "Path"})

	for idx, p := range f.Paths {
		tbl.AppendRow(table.Row{idx + 1, p})
	}

	tbl.AppendFooter(table.Row{"", "Total: " + strconv.Itoa(len(f.Paths))})
	tbl.Render()

	return nil
}

func writeRewriteTable(w io.Writer, r *Rewrite) error {
	tbl := newTable(w)
	tbl.SetTitle("Rename " + r.Old + " -> " + r.New)
	tbl.AppendHeader(table.Row{"Path", "Edits", "Violations", "Status"})

	for _, e := range r.Entries {
		status := "clean"
		if e.Style {
			status = "style"
		}

		tbl.AppendRow(table.Row{e.Path, len(e.Edits), len(e.Violations), status})
	}

	tbl.AppendFooter(table.Row{
		"Total: " + strconv.Itoa(len(r.Entries)), "", strconv.Itoa(r.StyleCount()), "",
	})
	tbl.Render()

	return nil
}
