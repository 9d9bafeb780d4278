package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pyimports/pkg/report"
	"github.com/Sumatoshi-tech/pyimports/pkg/rewrite"
)

func sampleRewrite() *report.Rewrite {
	return &report.Rewrite{
		Root:     "/src",
		Old:      "foo",
		New:      "qux",
		Strategy: "pattern",
		Entries: []report.Entry{
			{
				Path:  "b.py",
				Edits: []rewrite.Edit{{Line: 1, Before: "from foo import baz", After: "from qux import baz"}},
				Diff:  "--- a/b.py\n+++ b/b.py\n@@ -1 +1 @@\n-from foo import baz\n+from qux import baz\n",
			},
			{
				Path:       "a.py",
				Style:      true,
				Edits:      []rewrite.Edit{{Line: 3, Before: "import foo", After: "import qux"}},
				Violations: []rewrite.Violation{{Line: 3, Length: 80, Max: 79, Text: "import qux"}},
			},
		},
		Warnings: []report.Warning{{Path: "c.py", Error: "parse failure"}},
		Stats:    report.Stats{Scanned: 3, Matched: 2, Rewritten: 2, BytesRead: 2048},
	}
}

func TestRenderFind_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.RenderFind(&buf, &report.Find{Paths: []string{"a.py", "b.py"}}, report.Options{}))
	assert.Equal(t, "a.py\nb.py\n", buf.String())

	buf.Reset()
	require.NoError(t, report.RenderFind(&buf, &report.Find{}, report.Options{Format: report.FormatText}))
	assert.Empty(t, buf.String())
}

func TestRenderFind_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	f := &report.Find{Root: "/src", Module: "foo", Strategy: "structural", Paths: []string{"a.py"}}
	require.NoError(t, report.RenderFind(&buf, f, report.Options{Format: report.FormatJSON}))

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "foo", decoded["module"])
	assert.Equal(t, []any{"a.py"}, decoded["paths"])
	assert.NotContains(t, decoded, "warnings")
}

func TestRenderFind_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	f := &report.Find{Module: "foo", Paths: []string{"a.py", "pkg/b.py"}}
	require.NoError(t, report.RenderFind(&buf, f, report.Options{Format: report.FormatTable}))

	out := buf.String()
	assert.Contains(t, out, "Files importing foo")
	assert.Contains(t, out, "pkg/b.py")
	assert.Contains(t, out, "Total: 2")
}

func TestRenderRewrite_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.RenderRewrite(&buf, sampleRewrite(), report.Options{}))
	assert.Equal(t, "b.py\nstyle: a.py\n", buf.String())
}

func TestRenderRewrite_TextColorAndDiff(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.RenderRewrite(&buf, sampleRewrite(), report.Options{Color: true, ShowDiff: true}))

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "+from qux import baz\n")
	assert.Contains(t, out, " a.py\n")
	assert.Contains(t, out, "style:\x1b[0m a.py\n", "only the tag is colored")
}

func TestRenderRewrite_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.RenderRewrite(&buf, sampleRewrite(), report.Options{Format: report.FormatYAML}))

	var decoded report.Rewrite

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleRewrite(), &decoded)
}

func TestRenderRewrite_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.RenderRewrite(&buf, sampleRewrite(), report.Options{Format: report.FormatTable}))

	out := buf.String()
	assert.Contains(t, out, "Rename foo -> qux")
	assert.Contains(t, out, "style")
	assert.Contains(t, out, "clean")
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.ErrorIs(t, report.RenderFind(&buf, &report.Find{}, report.Options{Format: "xml"}), report.ErrUnknownFormat)
	require.ErrorIs(t, report.RenderRewrite(&buf, &report.Rewrite{}, report.Options{Format: "xml"}), report.ErrUnknownFormat)
	require.NoError(t, report.ValidateFormat(report.FormatYAML))
}

func TestEntryLabelAndStats(t *testing.T) {
	t.Parallel()

	r := sampleRewrite()

	assert.Equal(t, "b.py", r.Entries[0].Label())
	assert.Equal(t, "style: a.py", r.Entries[1].Label())
	assert.Equal(t, 1, r.StyleCount())
	assert.Equal(t, "scanned 3 files (2.0 kB), matched 2, rewritten 2", r.Stats.Summary())
}

func TestLineDiff(t *testing.T) {
	t.Parallel()

	before := []byte("import os\nimport foo\nx = 1\nfrom foo import y\n")
	after := []byte("import os\nimport qux\nx = 1\nfrom qux import y\n")

	assert.Equal(t,
		"--- a/m.py\n+++ b/m.py\n"+
			"@@ -2 +2 @@\n-import foo\n+import qux\n"+
			"@@ -4 +4 @@\n-from foo import y\n+from qux import y\n",
		report.LineDiff("m.py", before, after))

	assert.Empty(t, report.LineDiff("m.py", before, before))
}
