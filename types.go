// Package pyhints decides which inline hints are worth showing in Python
// source: parameter names at call sites, inferred variable types and
// inferred return types.
package pyhints

import (
	"strings"
)

// Type is a type descriptor produced by an Oracle.
// A nil Type means the oracle had nothing to say.
type Type interface {
	String() string
	isType()
}

// Declaration points at the definition of a symbol for click-to-navigate.
type Declaration struct {
	// Name is the declared name.
	Name string
	// Path is the file the symbol is declared in.
	Path string
	// Offset is the byte offset of the name in Path.
	Offset int
	// Builtin is set for symbols from the builtin stubs.
	Builtin bool
}

// UnknownType is an explicit "could not infer" answer.
type UnknownType struct{}

// NoneType is the type of None.
type NoneType struct{}

// UnionType is an ordered set of alternatives.
type UnionType struct {
	Members []Type
}

// ClassType is either an instance of a class or, when Definition is set,
// the class object itself.
type ClassType struct {
	Name          string
	QualifiedName string
	// Definition is set when the type denotes the class, not an instance.
	Definition bool
	Builtin    bool
	Supers     []Type
	Decl       *Declaration
}

// CollectionType is a parameterised container such as list[int].
// A nil entry in Elements is an unknown element slot.
type CollectionType struct {
	Name      string
	Elements  []Type
	Builtin   bool
	TypedDict bool
	Decl      *Declaration
}

// TupleType is a fixed-size tuple.
type TupleType struct {
	Elements []Type
	// Count is the number of elements, which can exceed len(Elements)
	// when the oracle only knows a prefix.
	Count int
}

// CallableType is a function or lambda value.
type CallableType struct {
	Params []Param
	// Lambda is set for lambda expressions. ParamText, when set, is the
	// presentable parameter list, e.g. "(x, y)", and wins over Params.
	Lambda    bool
	ParamText string
	Return    Type
	Decl      *Declaration
}

// NamedType is an opaque named type such as Any.
type NamedType struct {
	Name string
	Decl *Declaration
}

// TypeVarType is an unbound type variable.
type TypeVarType struct {
	Name string
}

func (UnknownType) isType()     {}
func (NoneType) isType()        {}
func (*UnionType) isType()      {}
func (*ClassType) isType()      {}
func (*CollectionType) isType() {}
func (*TupleType) isType()      {}
func (*CallableType) isType()   {}
func (*NamedType) isType()      {}
func (*TypeVarType) isType()    {}

func (UnknownType) String() string { return "Unknown" }

func (NoneType) String() string { return "None" }

func (t *UnionType) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = TypeString(m)
	}

	return strings.Join(parts, " | ")
}

func (t *ClassType) String() string {
	if t.Definition {
		return "Type[" + t.Name + "]"
	}

	return t.Name
}

func (t *CollectionType) String() string {
	if len(t.Elements) == 0 {
		return t.Name
	}

	return t.Name + "[" + joinTypes(t.Elements) + "]"
}

func (t *TupleType) String() string {
	if len(t.Elements) == 0 {
		return "tuple"
	}

	return "tuple[" + joinTypes(t.Elements) + "]"
}

func (t *CallableType) String() string {
	params := t.ParamText
	if params == "" {
		params = FormatParams(t.Params)
	}

	return params + " -> " + TypeString(t.Return)
}

func (t *NamedType) String() string { return t.Name }

func (t *TypeVarType) String() string { return t.Name }

// TypeString formats t, rendering nil as "Unknown".
func TypeString(t Type) string {
	if t == nil {
		return "Unknown"
	}

	return t.String()
}

func joinTypes(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = TypeString(t)
	}

	return strings.Join(parts, ", ")
}

// NewUnion builds a union from members, flattening nested unions and
// dropping duplicates by their string form. Nil members are kept as
// unknown alternatives. A single surviving member is returned as is.
func NewUnion(members ...Type) Type {
	var flat []Type

	seen := make(map[string]bool)

	var add func(t Type)

	add = func(t Type) {
		if u, ok := t.(*UnionType); ok {
			for _, m := range u.Members {
				add(m)
			}

			return
		}

		key := TypeString(t)
		if seen[key] {
			return
		}

		seen[key] = true
		flat = append(flat, t)
	}

	for _, m := range members {
		add(m)
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &UnionType{Members: flat}
	}
}

// IsUnknown reports whether t carries no information.
func IsUnknown(t Type) bool {
	if t == nil {
		return true
	}

	_, ok := t.(UnknownType)

	return ok
}

// IsNone reports whether t is the None type.
func IsNone(t Type) bool {
	_, ok := t.(NoneType)

	return ok
}

// KnownElements returns the non-nil, non-unknown entries of elems.
func KnownElements(elems []Type) []Type {
	var known []Type

	for _, e := range elems {
		if !IsUnknown(e) {
			known = append(known, e)
		}
	}

	return known
}
