package typeexpr

import (
	"strings"

	"github.com/rlch/pyhints"
)

// Resolver maps a dotted name that is not a known typing construct to a
// type. It may return nil, in which case the name becomes a NamedType.
type Resolver func(name string) pyhints.Type

var collectionNames = map[string]string{
	"list":           "list",
	"List":           "list",
	"dict":           "dict",
	"Dict":           "dict",
	"set":            "set",
	"Set":            "set",
	"frozenset":      "frozenset",
	"FrozenSet":      "frozenset",
	"DefaultDict":    "defaultdict",
	"OrderedDict":    "OrderedDict",
	"Coroutine":      "Coroutine",
	"Generator":      "Generator",
	"AsyncGenerator": "AsyncGenerator",
	"Iterator":       "Iterator",
	"Iterable":       "Iterable",
	"AsyncIterator":  "AsyncIterator",
	"AsyncIterable":  "AsyncIterable",
	"Awaitable":      "Awaitable",
	"Sequence":       "Sequence",
	"Mapping":        "Mapping",
	"MutableMapping": "MutableMapping",
	"Collection":     "Collection",
	"Literal":        "Literal",
}

var builtinCollections = map[string]int{
	"list":      1,
	"set":       1,
	"frozenset": 1,
	"dict":      2,
}

// Type converts the annotation. A nil resolver treats every unknown name
// as a user class.
func (a *Annotation) Type(resolve Resolver) pyhints.Type {
	if a == nil {
		return nil
	}

	members := make([]pyhints.Type, 0, len(a.Members))
	for _, m := range a.Members {
		members = append(members, m.Type(resolve))
	}

	return pyhints.NewUnion(members...)
}

// Type converts a single term.
func (t *Term) Type(resolve Resolver) pyhints.Type {
	switch {
	case t.None:
		return pyhints.NoneType{}
	case t.Ellipsis:
		return &pyhints.NamedType{Name: "..."}
	case t.Quoted != nil:
		inner, err := Parse(*t.Quoted)
		if err != nil {
			return &pyhints.NamedType{Name: unquote(*t.Quoted)}
		}

		return inner.Type(resolve)
	case t.Number != nil:
		return &pyhints.NamedType{Name: *t.Number}
	case t.List != nil:
		return &pyhints.NamedType{Name: t.List.ParamText()}
	case t.Named != nil:
		return t.Named.Type(resolve)
	}

	return nil
}

// ParamText formats the list as a callable parameter list: "(int, str)".
func (l *List) ParamText() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = pyhints.TypeString(item.Type(nil))
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// Type converts a named term, interpreting typing constructs.
func (n *Named) Type(resolve Resolver) pyhints.Type {
	args := make([]pyhints.Type, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Type(resolve)
	}

	base := n.Base()

	switch base {
	case "Any":
		return &pyhints.NamedType{Name: "Any"}
	case "Optional":
		if len(args) == 1 {
			return pyhints.NewUnion(args[0], pyhints.NoneType{})
		}
	case "Union":
		if len(args) > 0 {
			return pyhints.NewUnion(args...)
		}
	case "tuple", "Tuple":
		return &pyhints.TupleType{Elements: args, Count: len(args)}
	case "type", "Type":
		if len(args) == 1 {
			if cls, ok := args[0].(*pyhints.ClassType); ok {
				def := *cls
				def.Definition = true

				return &def
			}
		}

		return &pyhints.ClassType{Name: "type", QualifiedName: "builtins.type", Builtin: true}
	case "Callable":
		return callable(n, resolve)
	}

	if name, ok := collectionNames[base]; ok {
		return collection(name, args)
	}

	var resolved pyhints.Type
	if resolve != nil {
		resolved = resolve(n.Name())
	}

	if resolved == nil {
		resolved = classType(n.Name())
	}

	if len(args) == 0 {
		return resolved
	}

	// A user generic such as Box[int].
	coll := &pyhints.CollectionType{Name: base, Elements: args}
	if cls, ok := resolved.(*pyhints.ClassType); ok {
		coll.Name = cls.Name
		coll.Builtin = cls.Builtin
		coll.Decl = cls.Decl
	}

	return coll
}

var builtinScalars = map[string]bool{
	"int": true, "str": true, "float": true, "bool": true, "bytes": true,
	"complex": true, "object": true, "bytearray": true, "range": true,
}

func classType(name string) *pyhints.ClassType {
	base := name[strings.LastIndex(name, ".")+1:]
	if builtinScalars[name] {
		return &pyhints.ClassType{Name: base, QualifiedName: "builtins." + base, Builtin: true}
	}

	return &pyhints.ClassType{Name: base, QualifiedName: name}
}

func collection(name string, args []pyhints.Type) pyhints.Type {
	slots, builtin := builtinCollections[name]
	if builtin && len(args) == 0 {
		args = make([]pyhints.Type, slots)
	}

	return &pyhints.CollectionType{Name: name, Elements: args, Builtin: builtin}
}

func callable(n *Named, resolve Resolver) pyhints.Type {
	c := &pyhints.CallableType{ParamText: "(...)"}
	if len(n.Args) != 2 {
		return c
	}

	if params := n.Args[0]; len(params.Members) == 1 && params.Members[0].List != nil {
		c.ParamText = params.Members[0].List.ParamText()
	}

	c.Return = n.Args[1].Type(resolve)

	return c
}

// ParseType parses s and converts it in one step. Unparseable input
// yields nil.
func ParseType(s string, resolve Resolver) pyhints.Type {
	a, err := Parse(s)
	if err != nil {
		return nil
	}

	return a.Type(resolve)
}
