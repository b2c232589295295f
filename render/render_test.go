package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/render"
)

func builtin(name string) *pyhints.ClassType {
	return &pyhints.ClassType{Name: name, QualifiedName: "builtins." + name, Builtin: true}
}

func user(name string) *pyhints.ClassType {
	return &pyhints.ClassType{
		Name:          name,
		QualifiedName: "main." + name,
		Decl:          &pyhints.Declaration{Name: name, Path: "main.py", Offset: 6},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  pyhints.Type
		want string
	}{
		{name: "nil", typ: nil, want: "Unknown"},
		{name: "none", typ: pyhints.NoneType{}, want: "None"},
		{name: "class", typ: builtin("int"), want: "int"},
		{
			name: "dict",
			typ: &pyhints.CollectionType{
				Name: "dict", Builtin: true,
				Elements: []pyhints.Type{builtin("str"), builtin("int")},
			},
			want: "dict[str, int]",
		},
		{
			name: "dict unknown slots",
			typ:  &pyhints.CollectionType{Name: "dict", Builtin: true, Elements: []pyhints.Type{nil, nil}},
			want: "dict",
		},
		{
			name: "dict partly unknown",
			typ:  &pyhints.CollectionType{Name: "dict", Builtin: true, Elements: []pyhints.Type{builtin("str"), nil}},
			want: "dict[str, Unknown]",
		},
		{
			name: "typed dict",
			typ: &pyhints.CollectionType{
				Name: "Movie", TypedDict: true,
				Elements: []pyhints.Type{builtin("str"), builtin("object")},
			},
			want: "dict[str, object]",
		},
		{
			name: "collection cap",
			typ: &pyhints.CollectionType{
				Name: "Box",
				Elements: []pyhints.Type{
					builtin("int"), builtin("str"), builtin("bytes"), builtin("float"), builtin("bool"),
				},
			},
			want: "Box[int, str, bytes, ...]",
		},
		{
			name: "union cap",
			typ: pyhints.NewUnion(
				builtin("int"), builtin("str"), builtin("bytes"), builtin("float"),
			),
			want: "int | str | ...",
		},
		{
			name: "union with none uncapped",
			typ: pyhints.NewUnion(
				builtin("int"), builtin("str"), builtin("bytes"), pyhints.NoneType{},
			),
			want: "int | str | bytes | None",
		},
		{
			name: "union of two",
			typ:  pyhints.NewUnion(builtin("int"), builtin("str")),
			want: "int | str",
		},
		{
			name: "tuple of five",
			typ: &pyhints.TupleType{
				Elements: []pyhints.Type{
					builtin("int"), builtin("str"), builtin("bytes"), builtin("float"), builtin("bool"),
				},
				Count: 5,
			},
			want: "tuple[int, str, ...]",
		},
		{
			name: "tuple of two",
			typ:  &pyhints.TupleType{Elements: []pyhints.Type{builtin("int"), user("A")}, Count: 2},
			want: "tuple[int, A]",
		},
		{
			name: "tuple unknown",
			typ:  &pyhints.TupleType{Elements: []pyhints.Type{nil, nil}, Count: 2},
			want: "tuple",
		},
		{
			name: "class object",
			typ:  &pyhints.ClassType{Name: "A", Definition: true},
			want: "Type[A]",
		},
		{
			name: "function",
			typ: &pyhints.CallableType{
				Params: []pyhints.Param{
					{Name: "self", Self: true},
					{Name: "val", Annotation: "int"},
					{Kind: pyhints.ParamStar},
					{Name: "args", Kind: pyhints.ParamVarPositional},
					{Name: "kwargs", Kind: pyhints.ParamVarKeyword},
				},
				Return: user("A"),
			},
			want: "(val: int, *args, **kwargs) -> (A)",
		},
		{
			name: "lambda",
			typ:  &pyhints.CallableType{Lambda: true, ParamText: "(x, y)", Return: builtin("int")},
			want: "(x, y) -> (int)",
		},
		{
			name: "callable without return",
			typ:  &pyhints.CallableType{},
			want: "() -> (Any)",
		},
		{
			name: "coroutine",
			typ: &pyhints.CollectionType{
				Name:     "Coroutine",
				Elements: []pyhints.Type{&pyhints.NamedType{Name: "Any"}, &pyhints.NamedType{Name: "Any"}, builtin("int")},
			},
			want: "Coroutine[Any, Any, int]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, render.Text(tt.typ))
		})
	}
}

func TestRenderAnchors(t *testing.T) {
	t.Parallel()

	a := user("A")
	node := render.Render(&pyhints.CollectionType{
		Name: "list", Builtin: true, Elements: []pyhints.Type{a},
	})

	require.Len(t, node.Children, 1)
	assert.Nil(t, node.Anchor)
	assert.Same(t, a.Decl, node.Children[0].Anchor)

	want := []pyhints.Part{
		{Text: "list["},
		{Text: "A", Anchor: a.Decl},
		{Text: "]"},
	}
	if diff := cmp.Diff(want, node.Parts(false)); diff != "" {
		t.Errorf("Parts() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderIdempotent(t *testing.T) {
	t.Parallel()

	typ := pyhints.NewUnion(
		&pyhints.CollectionType{
			Name: "dict", Builtin: true,
			Elements: []pyhints.Type{builtin("str"), &pyhints.TupleType{
				Elements: []pyhints.Type{builtin("int"), user("A"), builtin("str")}, Count: 3,
			}},
		},
		pyhints.NoneType{},
	)

	first := render.Render(typ)
	second := render.Render(typ)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Render() not deterministic (-first +second):\n%s", diff)
	}
}

func TestRenderCollapsed(t *testing.T) {
	t.Parallel()

	typ := &pyhints.CollectionType{
		Name: "dict", Builtin: true,
		Elements: []pyhints.Type{
			builtin("str"),
			&pyhints.CollectionType{Name: "list", Builtin: true, Elements: []pyhints.Type{
				&pyhints.TupleType{Elements: []pyhints.Type{builtin("int"), builtin("str")}, Count: 2},
			}},
		},
	}

	node := render.Render(typ)
	assert.True(t, node.TooLong())
	assert.Equal(t, "dict[str, list[tuple[int, str]]]", node.Text())
	assert.Equal(t, "dict[...]", node.Collapsed())

	short := render.Render(&pyhints.CollectionType{
		Name: "list", Builtin: true, Elements: []pyhints.Type{builtin("int")},
	})
	assert.False(t, short.TooLong())
	assert.Equal(t, "list[int]", short.Collapsed())
}

func TestRenderDepthCap(t *testing.T) {
	t.Parallel()

	var typ pyhints.Type = builtin("int")
	for range 20 {
		typ = &pyhints.CollectionType{Name: "list", Builtin: true, Elements: []pyhints.Type{typ}}
	}

	text := render.Text(typ)
	assert.Contains(t, text, "...")
	assert.NotContains(t, text, "int")
}
