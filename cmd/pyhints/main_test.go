package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rlch/pyhints"
)

const sample = `def get_int() -> int:
    return 1

def greet(name, greeting):
    pass

x1 = get_int()
greet("bob", "hi")
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestInline(t *testing.T) {
	t.Parallel()

	long := &pyhints.HintNode{
		Label:          "dict",
		GenericWrapper: true,
		Separator:      pyhints.SepGeneric,
		Children: []*pyhints.HintNode{
			pyhints.Leaf("str"),
			{
				Label:          "list",
				GenericWrapper: true,
				Separator:      pyhints.SepGeneric,
				Children: []*pyhints.HintNode{
					{Separator: pyhints.SepUnion, Children: []*pyhints.HintNode{pyhints.Leaf("int"), pyhints.Leaf("str")}},
				},
			},
		},
	}

	src := []byte("x = f(a, b)\n")
	hints := []pyhints.Hint{
		{Kind: pyhints.HintVariableType, Node: long, Offset: 1},
		{Kind: pyhints.HintParameter, Text: "left", Offset: 6, Before: true},
		{Kind: pyhints.HintParameter, Text: "right", Offset: 9, Before: true},
	}

	got := inline(src, hints, PlainStyles(), false)
	assert.Equal(t, "x<# : dict[...] #> = f(<# left: #>a, <# right: #>b)\n", got)

	got = inline(src, hints, PlainStyles(), true)
	assert.Equal(t, "x<# : dict[str, list[int | str]] #> = f(<# left: #>a, <# right: #>b)\n", got)
}

func TestAnalyzeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "main.py", sample)

	a, err := analyzeFile(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printHints(&out, []*analysis{a}, PlainStyles(), false))

	assert.Contains(t, out.String(), "x1<# : int #> = get_int()")
	assert.Contains(t, out.String(), `greet(<# name: #>"bob", <# greeting: #>"hi")`)
}

func TestAnalyzeFileHonorsConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".pyhints.yaml", "hints:\n  parameters:\n    functions: false\n")
	path := writeFile(t, dir, "main.py", sample)

	a, err := analyzeFile(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Len(t, a.hints, 1)
	assert.Equal(t, ": int", a.hints[0].Label(false))
}

func TestPrintHintsOrder(t *testing.T) {
	t.Parallel()

	results := []*analysis{
		{path: "b.py", src: []byte("b = 1")},
		{path: "a.py", src: []byte("a = 1\n")},
	}

	var out bytes.Buffer
	require.NoError(t, printHints(&out, results, PlainStyles(), false))

	assert.Equal(t, "==> b.py <==\nb = 1\n\n==> a.py <==\na = 1\n", out.String())
}

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "")
	writeFile(t, dir, "pkg/b.py", "")
	writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, ".venv/lib/c.py", "")

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "a.py"), filepath.Join(dir, "pkg", "b.py")}, files)
}

func TestViewModel(t *testing.T) {
	t.Parallel()

	node := &pyhints.HintNode{
		Separator: pyhints.SepUnion,
		Children: []*pyhints.HintNode{
			pyhints.Leaf("int"), pyhints.Leaf("str"), pyhints.Leaf("bytes"), pyhints.Leaf("float"), pyhints.Leaf("None"),
		},
	}

	a := &analysis{
		path:  "main.py",
		src:   []byte("x = f()\n"),
		hints: []pyhints.Hint{{Kind: pyhints.HintVariableType, Node: node, Offset: 1}},
	}

	m := newViewModel(a, PlainStyles())
	assert.Equal(t, "loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	assert.Contains(t, m.View(), "collapsed")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.True(t, m.expand)
	assert.Contains(t, m.View(), "x<# : int | str | bytes | float | None #> = f()")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
