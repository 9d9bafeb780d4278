package detect_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyimports/pkg/detect"
	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
)

func newDetectors(t *testing.T, id string) []detect.Detector {
	t.Helper()

	structural, err := detect.New(detect.StrategyStructural, module.MustParse(id), detect.Options{})
	require.NoError(t, err)

	textual, err := detect.New(detect.StrategyPattern, module.MustParse(id), detect.Options{
		Patterns: pattern.NewCache(0),
	})
	require.NoError(t, err)

	return []detect.Detector{structural, textual}
}

func TestDetectors_NoImportOfModule(t *testing.T) {
	t.Parallel()

	sources := []string{
		"import os\nimport sys\n",
		"import foobar\nfrom foobar import x\n",
		"from . import foo\n",
		"from .foo import bar\n",
		"from bar import foo\n",
		"x = 1\n",
	}

	for _, det := range newDetectors(t, "foo") {
		for _, src := range sources {
			findings, err := det.Detect(context.Background(), "mod.py", []byte(src))
			require.NoError(t, err, "%s: %q", det.Name(), src)
			assert.False(t, findings.Found(), "%s: %q", det.Name(), src)
		}
	}
}

func TestDetectors_ImportsModule(t *testing.T) {
	t.Parallel()

	sources := []string{
		"import foo\n",
		"import foo.bar\n",
		"import foo as f\n",
		"from foo import baz\n",
		"from foo.sub import baz as b, qux\n",
		"def f():\n    import foo.deep\n",
	}

	for _, det := range newDetectors(t, "foo") {
		for _, src := range sources {
			findings, err := det.Detect(context.Background(), "mod.py", []byte(src))
			require.NoError(t, err, "%s: %q", det.Name(), src)
			assert.True(t, findings.Found(), "%s: %q", det.Name(), src)
		}
	}
}

func TestStructural_MultiNameImport(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("foo"), detect.StructuralOptions{})

	src := []byte("import os, foo.bar as fb, sys\n\n\nimport json\n")

	findings, err := det.Detect(context.Background(), "m.py", src)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	assert.Equal(t, detect.Finding{Kind: detect.KindImport, Line: 1, Module: "foo.bar"}, findings[0])
}

func TestStructural_FindingLines(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("pkg.core"), detect.StructuralOptions{})

	src := []byte(`"""Module docstring mentioning import pkg.core."""
import os

from pkg.core import thing
from pkg.corex import other

try:
    import pkg.core.fast as fast
except ImportError:
    fast = None
`)

	findings, err := det.Detect(context.Background(), "m.py", src)
	require.NoError(t, err)

	assert.Equal(t, detect.Findings{
		{Kind: detect.KindFrom, Line: 4, Module: "pkg.core"},
		{Kind: detect.KindImport, Line: 8, Module: "pkg.core.fast"},
	}, findings)
	assert.Equal(t, map[int]bool{4: true, 8: true}, findings.Lines())
}

func TestStructural_IgnoresStringsAndComments(t *testing.T) {
	t.Parallel()

	src := []byte("# import foo\ntext = \"\"\"\nimport foo\n\"\"\"\n")

	structural := detect.NewStructural(module.MustParse("foo"), detect.StructuralOptions{})

	findings, err := structural.Detect(context.Background(), "m.py", src)
	require.NoError(t, err)
	assert.False(t, findings.Found())

	textual := detect.NewTextual(pattern.New(module.MustParse("foo")))

	findings, err = textual.Detect(context.Background(), "m.py", src)
	require.NoError(t, err)
	assert.True(t, findings.Found(), "textual detection accepts matches inside strings")
}

func TestStructural_ParseFailure(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("foo"), detect.StructuralOptions{})

	_, err := det.Detect(context.Background(), "broken.py", []byte("import foo\n\ndef broken(:\n    pass\n"))
	require.Error(t, err)
	require.ErrorIs(t, err, detect.ErrParse)

	var parseErr *detect.ParseError

	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.py", parseErr.Path)
	assert.Positive(t, parseErr.Line)
}

func TestStructural_TolerateErrors(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("foo"), detect.StructuralOptions{TolerateErrors: true})

	findings, err := det.Detect(context.Background(), "broken.py", []byte("import foo\n\ndef broken(:\n    pass\n"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Line)
}

func TestStructural_UnsupportedLanguage(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("foo"), detect.StructuralOptions{})

	_, err := det.Detect(context.Background(), "README.rst", []byte("Title\n=====\n\n>>> import foo\n"))
	require.ErrorIs(t, err, detect.ErrUnsupportedLanguage)
}

func TestStructural_CustomGrammarMap(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("foo"), detect.StructuralOptions{
		Grammars: map[string]string{".PYW": "Python"},
	})

	findings, err := det.Detect(context.Background(), "gui.pyw", []byte("import foo\n"))
	require.NoError(t, err)
	assert.True(t, findings.Found())
}

func TestStructural_FutureImport(t *testing.T) {
	t.Parallel()

	det := detect.NewStructural(module.MustParse("__future__"), detect.StructuralOptions{})

	findings, err := det.Detect(context.Background(), "m.py", []byte("from __future__ import annotations\n"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, detect.KindFuture, findings[0].Kind)
}

func TestNew_UnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := detect.New("fuzzy", module.MustParse("foo"), detect.Options{})
	require.ErrorIs(t, err, detect.ErrUnknownStrategy)
}

func TestNew_DefaultsToPattern(t *testing.T) {
	t.Parallel()

	det, err := detect.New("", module.MustParse("foo"), detect.Options{})
	require.NoError(t, err)
	assert.Equal(t, detect.StrategyPattern, det.Name())
	assert.Equal(t, module.Identifier("foo"), det.Module())
}

func TestParseError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.py:3: parse failure", (&detect.ParseError{Path: "a.py", Line: 3}).Error())
	assert.Equal(t, "a.py: parse failure", (&detect.ParseError{Path: "a.py"}).Error())
}
