// Package pyhintstest provides an in-memory oracle for engine tests.
package pyhintstest

import (
	"github.com/rlch/pyhints"
)

// Oracle answers from maps filled in by the test. Lookups that are not
// configured return nil, or Err when it is set.
type Oracle struct {
	Sites      map[*pyhints.Site]pyhints.Type
	Exprs      map[*pyhints.Expr]pyhints.Type
	Returns    map[*pyhints.Definition]pyhints.Type
	Callees    map[*pyhints.Expr][]*pyhints.Definition
	References map[*pyhints.Expr]*pyhints.Definition

	// Err is returned by every lookup when set.
	Err error
}

var _ pyhints.Oracle = (*Oracle)(nil)

// NewOracle returns an empty oracle.
func NewOracle() *Oracle {
	return &Oracle{
		Sites:      make(map[*pyhints.Site]pyhints.Type),
		Exprs:      make(map[*pyhints.Expr]pyhints.Type),
		Returns:    make(map[*pyhints.Definition]pyhints.Type),
		Callees:    make(map[*pyhints.Expr][]*pyhints.Definition),
		References: make(map[*pyhints.Expr]*pyhints.Definition),
	}
}

// TypeOf implements pyhints.Oracle.
func (o *Oracle) TypeOf(site *pyhints.Site) (pyhints.Type, error) { //nolint:ireturn
	if o.Err != nil {
		return nil, o.Err
	}

	return o.Sites[site], nil
}

// ReturnType implements pyhints.Oracle.
func (o *Oracle) ReturnType(def *pyhints.Definition) (pyhints.Type, error) { //nolint:ireturn
	if o.Err != nil {
		return nil, o.Err
	}

	return o.Returns[def], nil
}

// ExprType implements pyhints.Oracle.
func (o *Oracle) ExprType(e *pyhints.Expr) (pyhints.Type, error) { //nolint:ireturn
	if o.Err != nil {
		return nil, o.Err
	}

	return o.Exprs[e], nil
}

// ResolveCallee implements pyhints.Oracle.
func (o *Oracle) ResolveCallee(call *pyhints.Expr) (*pyhints.Definition, error) {
	if o.Err != nil {
		return nil, o.Err
	}

	if defs := o.Callees[call]; len(defs) > 0 {
		return defs[0], nil
	}

	return nil, nil //nolint:nilnil
}

// MultiResolveCallee implements pyhints.Oracle.
func (o *Oracle) MultiResolveCallee(call *pyhints.Expr) ([]*pyhints.Definition, error) {
	if o.Err != nil {
		return nil, o.Err
	}

	return o.Callees[call], nil
}

// ResolveReference implements pyhints.Oracle.
func (o *Oracle) ResolveReference(ref *pyhints.Expr) (*pyhints.Definition, error) {
	if o.Err != nil {
		return nil, o.Err
	}

	return o.References[ref], nil
}

// Builtin returns a builtin class instance type.
func Builtin(name string) *pyhints.ClassType {
	return &pyhints.ClassType{Name: name, QualifiedName: "builtins." + name, Builtin: true}
}

// Class returns a user class instance type declared in main.py.
func Class(name string) *pyhints.ClassType {
	return &pyhints.ClassType{
		Name:          name,
		QualifiedName: "main." + name,
		Decl:          &pyhints.Declaration{Name: name, Path: "main.py"},
	}
}

// List returns list[elem] with a nil elem meaning unknown.
func List(elem pyhints.Type) *pyhints.CollectionType {
	return &pyhints.CollectionType{Name: "list", Builtin: true, Elements: []pyhints.Type{elem}}
}

// Set returns set[elem].
func Set(elem pyhints.Type) *pyhints.CollectionType {
	return &pyhints.CollectionType{Name: "set", Builtin: true, Elements: []pyhints.Type{elem}}
}

// Dict returns dict[key, value].
func Dict(key, value pyhints.Type) *pyhints.CollectionType {
	return &pyhints.CollectionType{Name: "dict", Builtin: true, Elements: []pyhints.Type{key, value}}
}

// Lit returns a literal expression.
func Lit(kind pyhints.LiteralKind, text string) *pyhints.Expr {
	return &pyhints.Expr{Kind: pyhints.ExprLiteral, Literal: kind, Text: text}
}

// Ref returns a name reference.
func Ref(name string) *pyhints.Expr {
	return &pyhints.Expr{Kind: pyhints.ExprRef, Name: name, Text: name}
}

// Call returns a call of callee with args.
func Call(callee *pyhints.Expr, args ...*pyhints.Expr) *pyhints.Expr {
	return &pyhints.Expr{Kind: pyhints.ExprCall, Callee: callee, Elements: args, Text: callee.Text + "(...)"}
}

// Variable returns a module level variable site bound to value.
func Variable(name string, value *pyhints.Expr) *pyhints.Site {
	return &pyhints.Site{Kind: pyhints.SiteVariable, Name: name, Value: value, Scope: pyhints.ScopeModule}
}

// BuiltinClass returns a class definition from builtins.pyi.
func BuiltinClass(name string) *pyhints.Definition {
	return &pyhints.Definition{
		Kind:          pyhints.DefClass,
		Name:          name,
		QualifiedName: "builtins." + name,
		File:          "builtins.pyi",
		Builtin:       true,
	}
}

// UserClass returns a class definition from main.py.
func UserClass(name string) *pyhints.Definition {
	return &pyhints.Definition{
		Kind:          pyhints.DefClass,
		Name:          name,
		QualifiedName: "main." + name,
		File:          "main.py",
	}
}

// Function returns a function definition from main.py.
func Function(name string, params ...pyhints.Param) *pyhints.Definition {
	return &pyhints.Definition{
		Kind:          pyhints.DefFunction,
		Name:          name,
		QualifiedName: "main." + name,
		File:          "main.py",
		Params:        params,
	}
}

// P returns a positional parameter.
func P(name string) pyhints.Param {
	return pyhints.Param{Name: name}
}
