// Package typeexpr parses Python annotation strings such as
// "dict[str, list[int]] | None" into pyhints types.
package typeexpr

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Annotation is a union of terms: "int | None".
type Annotation struct {
	Pos lexer.Position

	Members []*Term `parser:"@@ ( '|' @@ )*"`
}

// Term is one alternative of an annotation.
type Term struct {
	None     bool    `parser:"  @'None'"`
	Ellipsis bool    `parser:"| @Ellipsis"`
	Quoted   *string `parser:"| @String"`
	Number   *string `parser:"| @Number"`
	List     *List   `parser:"| @@"`
	Named    *Named  `parser:"| @@"`
}

// List is a bracketed list, as in the parameters of Callable[[int], str].
type List struct {
	Items []*Annotation `parser:"'[' ( @@ ( ',' @@ )* )? ']'"`
}

// Named is a possibly dotted, possibly subscripted name: typing.Dict[str, int].
type Named struct {
	Path []string      `parser:"@Ident ( '.' @Ident )*"`
	Args []*Annotation `parser:"( '[' @@ ( ',' @@ )* ']' )?"`
}

// Name returns the dotted name.
func (n *Named) Name() string {
	return strings.Join(n.Path, ".")
}

// Base returns the last component of the dotted name.
func (n *Named) Base() string {
	return n.Path[len(n.Path)-1]
}

var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Ellipsis", Pattern: `\.\.\.`},
	{Name: "Number", Pattern: `-?\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\],|.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[Annotation](
	participle.Lexer(annotationLexer),
	participle.Elide("Whitespace"),
)

// Parse parses an annotation string. Surrounding quotes of forward
// references are accepted.
func Parse(s string) (*Annotation, error) {
	return parser.ParseString("", unquote(strings.TrimSpace(s)))
}

// unquote strips one level of matching quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}

	return s
}
