package rewrite_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
	"github.com/Sumatoshi-tech/pyimports/pkg/rewrite"
)

func apply(src, oldName, newName string, opts rewrite.Options) rewrite.Result {
	return rewrite.Apply([]byte(src), pattern.New(module.MustParse(oldName)), module.MustParse(newName), opts)
}

func TestApply_PlainAndFrom(t *testing.T) {
	t.Parallel()

	src := "import os\nimport foo\nimport foo.bar as fb\nfrom foo import x\nfrom foo.sub import (\n    y,\n)\n"

	res := apply(src, "foo", "qux", rewrite.Options{})

	require.True(t, res.Changed)
	assert.Equal(t,
		"import os\nimport qux\nimport qux.bar as fb\nfrom qux import x\nfrom qux.sub import (\n    y,\n)\n",
		string(res.Source))
	assert.Equal(t, []rewrite.Edit{
		{Line: 2, Before: "import foo", After: "import qux"},
		{Line: 3, Before: "import foo.bar as fb", After: "import qux.bar as fb"},
		{Line: 4, Before: "from foo import x", After: "from qux import x"},
		{Line: 5, Before: "from foo.sub import (", After: "from qux.sub import ("},
	}, res.Edits)
}

func TestApply_LeavesOtherModulesAlone(t *testing.T) {
	t.Parallel()

	src := "import foobar\nfrom . import foo\nfrom .foo import x\nfrom bar import foo\nx = 'import foo'\n"

	res := apply(src, "foo", "qux", rewrite.Options{})

	assert.False(t, res.Changed)
	assert.Empty(t, res.Edits)
	assert.Equal(t, src, string(res.Source))
}

func TestApply_UnicodeIdentifierBoundary(t *testing.T) {
	t.Parallel()

	src := "import fooé\nfrom fooé import x\nimport foo.bär\n"

	res := apply(src, "foo", "qux", rewrite.Options{})

	require.True(t, res.Changed)
	assert.Equal(t, "import fooé\nfrom fooé import x\nimport qux.bär\n", string(res.Source))
	assert.Equal(t, []rewrite.Edit{{Line: 3, Before: "import foo.bär", After: "import qux.bär"}}, res.Edits)
}

func TestApply_SameModuleIsNoop(t *testing.T) {
	t.Parallel()

	src := "import foo\nfrom foo.bar import x\n"

	res := apply(src, "foo", "foo", rewrite.Options{})

	assert.False(t, res.Changed)
	assert.Empty(t, res.Edits)
	assert.Equal(t, src, string(res.Source))
}

func TestApply_PreservesIndentationAndTail(t *testing.T) {
	t.Parallel()

	src := "def f():\n    import foo.bar as b  # noqa\n    return b\n\n>>> from foo import thing\n"

	res := apply(src, "foo", "new.pkg", rewrite.Options{})

	require.True(t, res.Changed)
	assert.Equal(t,
		"def f():\n    import new.pkg.bar as b  # noqa\n    return b\n\n>>> from new.pkg import thing\n",
		string(res.Source))
}

func TestApply_CRLF(t *testing.T) {
	t.Parallel()

	res := apply("import foo\r\nfrom foo import x\r\n", "foo", "bar", rewrite.Options{})

	require.True(t, res.Changed)
	assert.Equal(t, "import bar\r\nfrom bar import x\r\n", string(res.Source))
	assert.Equal(t, "import bar", res.Edits[0].After)
}

func TestApply_RestrictedLines(t *testing.T) {
	t.Parallel()

	src := "import foo\ndoc = \"\"\"\nimport foo\n\"\"\"\n"

	res := apply(src, "foo", "bar", rewrite.Options{Lines: map[int]bool{1: true}})

	require.True(t, res.Changed)
	assert.Equal(t, "import bar\ndoc = \"\"\"\nimport foo\n\"\"\"\n", string(res.Source))
	require.Len(t, res.Edits, 1)

	res = apply(src, "foo", "bar", rewrite.Options{Lines: map[int]bool{}})
	assert.False(t, res.Changed)
}

func TestApply_FirstMatchOnly(t *testing.T) {
	t.Parallel()

	src := "import foo\nfrom foo import x\n"

	res := apply(src, "foo", "bar", rewrite.Options{FirstMatchOnly: true})
	assert.Equal(t, "import bar\nfrom foo import x\n", string(res.Source))

	res = apply("from foo import x\n", "foo", "bar", rewrite.Options{FirstMatchOnly: true})
	assert.Equal(t, "from bar import x\n", string(res.Source))
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	src := "import foo\nfrom foo.sub import x\n"

	first := apply(src, "foo", "bar", rewrite.Options{})
	second := rewrite.Apply(first.Source, pattern.New(module.MustParse("foo")), module.MustParse("bar"), rewrite.Options{})

	assert.False(t, second.Changed)
	assert.Equal(t, string(first.Source), string(second.Source))
}

func TestApply_SubmoduleTargetIdempotent(t *testing.T) {
	t.Parallel()

	src := "import foo\nfrom foo.sub import x\nimport foo.compat.y\n"

	first := apply(src, "foo", "foo.compat", rewrite.Options{})
	assert.Equal(t, "import foo.compat\nfrom foo.compat.sub import x\nimport foo.compat.y\n", string(first.Source))
	assert.Len(t, first.Edits, 2)

	second := apply(string(first.Source), "foo", "foo.compat", rewrite.Options{})
	assert.False(t, second.Changed)
}

func TestApply_RoundTrip(t *testing.T) {
	t.Parallel()

	src := "import alpha\nimport alpha.beta as ab\nfrom alpha.gamma import delta\n"

	there := apply(src, "alpha", "omega", rewrite.Options{})
	back := apply(string(there.Source), "omega", "alpha", rewrite.Options{})

	assert.Equal(t, src, string(back.Source))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	src := []byte("import foo\n")
	_ = rewrite.Apply(src, pattern.New(module.MustParse("foo")), module.MustParse("bar"), rewrite.Options{})

	assert.Equal(t, "import foo\n", string(src))
}

func TestCheckLineLength(t *testing.T) {
	t.Parallel()

	tail := " import thing"
	exact := "from " + strings.Repeat("x", 79-len("from ")-len(tail)) + tail
	long := exact + "s"

	require.Len(t, exact, 79)

	edits := []rewrite.Edit{
		{Line: 1, After: exact},
		{Line: 2, After: long},
		{Line: 3, After: "import é" + strings.Repeat("y", 71)},
	}

	violations := rewrite.CheckLineLength(edits, 0)

	require.Len(t, violations, 1)
	assert.Equal(t, rewrite.Violation{Line: 2, Length: 80, Max: rewrite.DefaultMaxLineLength, Text: long}, violations[0])

	violations = rewrite.CheckLineLength(edits, 100)
	assert.Empty(t, violations)
}

func TestApply_StyleScenario(t *testing.T) {
	t.Parallel()

	// "from " + name + " import a" is 14 characters plus the name.
	line := "from a import a\n"

	clean := apply(line, "a", strings.Repeat("n", 65), rewrite.Options{})
	require.True(t, clean.Changed)
	assert.Empty(t, rewrite.CheckLineLength(clean.Edits, 0))

	styled := apply(line, "a", strings.Repeat("n", 66), rewrite.Options{})
	require.True(t, styled.Changed)

	violations := rewrite.CheckLineLength(styled.Edits, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, 80, violations[0].Length)
}
