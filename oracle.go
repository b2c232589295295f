package pyhints

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// Errors shared by oracles, engines and collectors.
var (
	// ErrNotSequence is returned when a value expected to be a sequence
	// literal is something else.
	ErrNotSequence = errors.New("expression is not a sequence literal")

	// ErrStale is returned when an element was invalidated between
	// scheduling and evaluation.
	ErrStale = errors.New("stale element")

	// ErrOracle wraps failures inside an oracle.
	ErrOracle = errors.New("oracle failure")

	// ErrUnknownOracle is returned by NewOracle for unregistered names.
	ErrUnknownOracle = errors.New("unknown oracle")

	// ErrConfigNotFound is returned when no config file exists up the tree.
	ErrConfigNotFound = errors.New("config file not found")
)

// Oracle answers type and resolution questions about one source file.
// Implementations are authoritative; the engines never second-guess them.
type Oracle interface {
	// TypeOf returns the inferred type of a binding site. For function
	// sites this is the type their return statements produce.
	TypeOf(site *Site) (Type, error)

	// ReturnType returns the declared or inferred return type of a callable.
	ReturnType(def *Definition) (Type, error)

	// ExprType returns the inferred type of an expression.
	ExprType(e *Expr) (Type, error)

	// ResolveCallee resolves the callee of a call expression.
	ResolveCallee(call *Expr) (*Definition, error)

	// MultiResolveCallee returns every callable a call may dispatch to,
	// most specific first.
	MultiResolveCallee(call *Expr) ([]*Definition, error)

	// ResolveReference resolves a name or attribute reference.
	ResolveReference(ref *Expr) (*Definition, error)
}

// DefinitionKind classifies resolved symbols.
type DefinitionKind int

// Definition kinds.
const (
	DefFunction DefinitionKind = iota
	DefClass
	DefTarget
	DefLambda
	DefModule
)

// Definition is what a reference or callee resolves to.
type Definition struct {
	Kind          DefinitionKind
	Name          string
	QualifiedName string
	// File is the base name of the declaring file, e.g. "builtins.pyi".
	File string

	// Params are the formal parameters of functions and lambdas.
	Params []Param
	// Owner is the class a method is declared on.
	Owner *Definition

	Builtin bool

	// Initializer is the __init__ or __new__ found on a class or its
	// supers; its Owner tells which.
	Initializer *Definition
	// Attributes are declared class attributes, usable as dataclass fields.
	Attributes []Param
	// CallOperator is the class's __call__ method.
	CallOperator *Definition

	// Lambda is set on targets whose assigned value is a lambda.
	Lambda *Definition
	// Site is set on targets.
	Site *Site

	Decl *Declaration
}

// InFile reports whether the definition is declared in one of names.
func (d *Definition) InFile(names ...string) bool {
	if d == nil || d.File == "" {
		return false
	}

	base := filepath.Base(d.File)
	for _, n := range names {
		if base == n {
			return true
		}
	}

	return false
}

// OracleFactory builds an oracle from source content.
type OracleFactory func(path string, src []byte) (Oracle, error)

var oracles = make(map[string]OracleFactory)

// RegisterOracle registers an oracle factory by name.
// Oracle packages call this from init().
func RegisterOracle(name string, factory OracleFactory) {
	oracles[name] = factory
}

// NewOracle creates an oracle by name.
func NewOracle(name, path string, src []byte) (Oracle, error) { //nolint:ireturn
	factory, ok := oracles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOracle, name)
	}

	return factory(path, src)
}

// RegisteredOracles returns the names of all registered oracles, sorted.
func RegisteredOracles() []string {
	names := make([]string, 0, len(oracles))
	for name := range oracles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
