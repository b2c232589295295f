package typeexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/typeexpr"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"int", "int"},
		{"list[int]", "list[int]"},
		{"List", "list[Unknown]"},
		{"Dict[str, List[int]]", "dict[str, list[int]]"},
		{"typing.Dict[str, int]", "dict[str, int]"},
		{"Optional[int]", "int | None"},
		{"int | None", "int | None"},
		{"Union[int, str, int]", "int | str"},
		{"'A'", "A"},
		{"list['A']", "list[A]"},
		{"Type[A]", "Type[A]"},
		{"Callable[[int, str], bool]", "(int, str) -> bool"},
		{"Callable[..., int]", "(...) -> int"},
		{"Callable[[], None]", "() -> None"},
		{"tuple[int, str]", "tuple[int, str]"},
		{"typing.Any", "Any"},
		{"Coroutine[Any, Any, int]", "Coroutine[Any, Any, int]"},
		{"Box[int]", "Box[int]"},
		{"Literal[1]", "Literal[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := typeexpr.ParseType(tt.input, nil)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTypeInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"list[", "int |", "[int"} {
		_, err := typeexpr.Parse(input)
		assert.Error(t, err, input)
		assert.Nil(t, typeexpr.ParseType(input, nil), input)
	}
}

func TestBuiltinScalars(t *testing.T) {
	t.Parallel()

	cls, ok := typeexpr.ParseType("int", nil).(*pyhints.ClassType)
	require.True(t, ok)
	assert.True(t, cls.Builtin)
	assert.Equal(t, "builtins.int", cls.QualifiedName)

	user, ok := typeexpr.ParseType("pkg.Model", nil).(*pyhints.ClassType)
	require.True(t, ok)
	assert.False(t, user.Builtin)
	assert.Equal(t, "Model", user.Name)
	assert.Equal(t, "pkg.Model", user.QualifiedName)
}

func TestResolver(t *testing.T) {
	t.Parallel()

	decl := &pyhints.Declaration{Name: "A", Path: "a.py", Offset: 6}
	resolve := func(name string) pyhints.Type {
		if name == "A" {
			return &pyhints.ClassType{Name: "A", QualifiedName: "a.A", Decl: decl}
		}

		return nil
	}

	typ := typeexpr.ParseType("Type[A]", resolve)
	cls, ok := typ.(*pyhints.ClassType)
	require.True(t, ok)
	assert.True(t, cls.Definition)
	assert.Same(t, decl, cls.Decl)

	coll, ok := typeexpr.ParseType("list[A]", resolve).(*pyhints.CollectionType)
	require.True(t, ok)
	require.Len(t, coll.Elements, 1)
	assert.Same(t, decl, coll.Elements[0].(*pyhints.ClassType).Decl)
}
