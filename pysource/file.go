// Package pysource is a Python front end built on tree-sitter. It extracts
// the binding sites and calls of a file and answers type questions about
// them with a small local inference engine.
package pysource

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/rlch/pyhints"
)

// OracleName is the name the tree-sitter oracle is registered under.
const OracleName = "treesitter"

// MaxFileSize is the largest input Parse accepts.
const MaxFileSize = 4 << 20

var (
	// ErrInvalidContent is returned for input that is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge is returned for input larger than MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
)

func init() {
	pyhints.RegisterOracle(OracleName, func(path string, src []byte) (pyhints.Oracle, error) {
		return Parse(context.Background(), path, src)
	})
}

// SyntaxError is a region tree-sitter could not parse.
type SyntaxError struct {
	Offset  int
	End     int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%d: %s", e.Offset, e.Message)
}

// File is a parsed Python file. It implements pyhints.Oracle and is safe
// for concurrent use.
type File struct {
	Path string
	// Module is the dotted name declarations are qualified with.
	Module string
	Src    []byte
	// Errors are the syntax errors of the file. Extraction carries on
	// around them.
	Errors []SyntaxError

	sites []*pyhints.Site
	calls []*pyhints.Expr
	lines []int

	module  *scope
	modules map[string]*File
	stub    bool

	exprScope    map[*pyhints.Expr]*scope
	siteBindings map[*pyhints.Site]*binding
	siteFuncs    map[*pyhints.Site]*function
	functions    map[*pyhints.Definition]*function
	lambdas      map[*pyhints.Expr]*function
	classes      map[*pyhints.Definition]*class
	classNames   map[string]*class
	classList    []*class
	targets      map[*binding]*pyhints.Definition

	mu     sync.Mutex
	memo   map[memoKey]pyhints.Type
	active map[memoKey]bool
	depth  int
}

// Parse parses src, the content of the file at path.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	modules, err := loadStubs()
	if err != nil {
		return nil, err
	}

	f, err := parse(ctx, path, src, modules)
	if err != nil {
		return nil, err
	}

	for _, c := range f.classList {
		f.finalize(c)
	}

	return f, nil
}

func parse(ctx context.Context, path string, src []byte, modules map[string]*File) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if len(src) > MaxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(src), MaxFileSize)
	}

	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidContent, path)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	f := &File{
		Path:         path,
		Module:       moduleName(path),
		Src:          src,
		modules:      modules,
		stub:         strings.HasSuffix(path, ".pyi"),
		exprScope:    make(map[*pyhints.Expr]*scope),
		siteBindings: make(map[*pyhints.Site]*binding),
		siteFuncs:    make(map[*pyhints.Site]*function),
		functions:    make(map[*pyhints.Definition]*function),
		lambdas:      make(map[*pyhints.Expr]*function),
		classes:      make(map[*pyhints.Definition]*class),
		classNames:   make(map[string]*class),
		targets:      make(map[*binding]*pyhints.Definition),
		memo:         make(map[memoKey]pyhints.Type),
		active:       make(map[memoKey]bool),
	}
	f.lines = lineStarts(src)

	var parent *scope
	if builtins, ok := modules["builtins"]; ok && builtins.module != nil {
		parent = builtins.module
	}

	f.module = newScope(scopeModule, parent, f, f.Module)

	root := tree.RootNode()
	if root == nil {
		return f, nil
	}

	if root.HasError() {
		f.Errors = syntaxErrors(root, nil)
	}

	x := &extractor{f: f, src: src}
	x.block(root, frame{scope: f.module})

	return f, nil
}

func moduleName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(strings.TrimSuffix(base, ".pyi"), ".py")
}

func syntaxErrors(n *sitter.Node, errs []SyntaxError) []SyntaxError {
	switch {
	case n.IsMissing():
		return append(errs, SyntaxError{
			Offset:  int(n.StartByte()),
			End:     int(n.EndByte()),
			Message: "missing " + n.Type(),
		})
	case n.Type() == "ERROR":
		return append(errs, SyntaxError{
			Offset:  int(n.StartByte()),
			End:     int(n.EndByte()),
			Message: "invalid syntax",
		})
	case !n.HasError():
		return errs
	}

	for _, child := range allChildren(n) {
		errs = syntaxErrors(child, errs)
	}

	return errs
}

// Sites returns the binding sites of the file in source order.
func (f *File) Sites() []*pyhints.Site { return f.sites }

// Calls returns the call expressions of the file in source order.
func (f *File) Calls() []*pyhints.Expr { return f.calls }

// SiteAt returns the innermost site whose name spans offset.
func (f *File) SiteAt(offset int) *pyhints.Site {
	var found *pyhints.Site

	for _, site := range f.sites {
		if site.Offset <= offset && offset <= site.End {
			found = site
		}
	}

	return found
}

func (f *File) addSite(site *pyhints.Site) {
	f.sites = append(f.sites, site)
}

// ----------------------------------------------------------------------------
// Positions
// ----------------------------------------------------------------------------

func lineStarts(src []byte) []int {
	starts := []int{0}

	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// LineCol converts a byte offset to a zero-based line and UTF-16 column, as
// the Language Server Protocol counts them.
func (f *File) LineCol(offset int) (int, int) {
	offset = max(0, min(offset, len(f.Src)))

	line := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > offset }) - 1
	line = max(line, 0)

	col := 0
	for _, r := range string(f.Src[f.lines[line]:offset]) {
		col += utf16Len(r)
	}

	return line, col
}

// Offset converts a zero-based line and UTF-16 column to a byte offset.
// Positions past the end of a line clamp to its end.
func (f *File) Offset(line, col int) int {
	if line < 0 {
		return 0
	}

	if line >= len(f.lines) {
		return len(f.Src)
	}

	start := f.lines[line]

	end := len(f.Src)
	if line+1 < len(f.lines) {
		end = f.lines[line+1] - 1
	}

	units := 0
	for i, r := range string(f.Src[start:end]) {
		if units >= col {
			return start + i
		}

		units += utf16Len(r)
	}

	return end
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}

	return 1
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	result := make([]*sitter.Node, 0, count)

	for i := range count {
		if child := n.NamedChild(i); child != nil && child.Type() != "comment" {
			result = append(result, child)
		}
	}

	return result
}

func allChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	result := make([]*sitter.Node, 0, count)

	for i := range count {
		result = append(result, n.Child(i))
	}

	return result
}

func hasChild(n *sitter.Node, typ string) bool {
	for _, child := range allChildren(n) {
		if child.Type() == typ {
			return true
		}
	}

	return false
}

func (f *File) decl(name string, offset int) *pyhints.Declaration {
	return &pyhints.Declaration{Name: name, Path: f.Path, Offset: offset, Builtin: f.stub}
}
