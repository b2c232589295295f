package pysource

import (
	"github.com/rlch/pyhints"
)

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeClass
	scopeFunction
	scopeLambda
	scopeComprehension
)

// scope is a lexical scope. Class scopes are only visible from their own
// body, as in Python.
type scope struct {
	kind   scopeKind
	parent *scope
	file   *File
	// qualifier prefixes qualified names declared in this scope.
	qualifier string
	names     map[string][]*binding

	fn    *function
	class *class
}

func newScope(kind scopeKind, parent *scope, file *File, qualifier string) *scope {
	return &scope{kind: kind, parent: parent, file: file, qualifier: qualifier, names: make(map[string][]*binding)}
}

func (s *scope) bind(b *binding) {
	b.scope = s
	s.names[b.name] = append(s.names[b.name], b)
}

// lookup finds the binding of name visible at offset. Within one scope the
// last binding before offset wins; failing that the last binding at all,
// since functions run after the module body has finished.
func (s *scope) lookup(name string, offset int) *binding {
	for cur, first := s, true; cur != nil; cur, first = cur.parent, false {
		if cur.kind == scopeClass && !first {
			continue
		}

		if b := cur.local(name, offset); b != nil {
			return b
		}

		// Offsets do not carry across files.
		if cur.parent != nil && cur.parent.file != cur.file {
			offset = -1
		}
	}

	return nil
}

func (s *scope) local(name string, offset int) *binding {
	bs := s.names[name]
	if len(bs) == 0 {
		return nil
	}

	if offset >= 0 {
		for i := len(bs) - 1; i >= 0; i-- {
			if bs[i].offset <= offset {
				return bs[i]
			}
		}
	}

	return bs[len(bs)-1]
}

// all returns every binding of name in the scope that defines it, latest
// first.
func (s *scope) all(name string) []*binding {
	for cur, first := s, true; cur != nil; cur, first = cur.parent, false {
		if cur.kind == scopeClass && !first {
			continue
		}

		if bs := cur.names[name]; len(bs) > 0 {
			out := make([]*binding, len(bs))
			for i, b := range bs {
				out[len(bs)-1-i] = b
			}

			return out
		}
	}

	return nil
}

func (s *scope) qualify(name string) string {
	if s.qualifier == "" {
		return name
	}

	return s.qualifier + "." + name
}

// siteScope maps the scope to the kind reported on binding sites.
func (s *scope) siteScope() pyhints.ScopeKind {
	switch s.kind {
	case scopeClass:
		return pyhints.ScopeClass
	case scopeFunction, scopeLambda:
		return pyhints.ScopeFunction
	case scopeComprehension:
		return pyhints.ScopeComprehension
	default:
		return pyhints.ScopeModule
	}
}

// binding is one way a name gets its value.
type binding struct {
	name   string
	offset int
	scope  *scope

	// site is set for bindings that get hints.
	site *pyhints.Site
	// annotation is an explicit annotation.
	annotation string

	// value is the assigned expression; for unpacking targets the whole
	// right-hand side, with path selecting the element.
	value *pyhints.Expr
	path  []int
	// iter is the iterable of loop and comprehension targets.
	iter *pyhints.Expr
	// exception is the matched type of except clause targets.
	exception *pyhints.Expr
	// manager is the context manager of with targets.
	manager *pyhints.Expr

	param *parameter

	fn     *function
	class  *class
	module string
	// imported is set for "from module import name".
	imported string
}

// parameter is a formal parameter binding.
type parameter struct {
	pyhints.Param
	fn         *function
	index      int
	defaultVal *pyhints.Expr
}

// function is a def or lambda.
type function struct {
	def   *pyhints.Definition
	site  *pyhints.Site
	scope *scope

	params     []*parameter
	returnAnn  string
	async      bool
	generator  bool
	lambda     bool
	stub       bool
	decorators []string
	owner      *class

	returns      []*pyhints.Expr
	bareReturn   bool
	yields       []*pyhints.Expr
	yieldFroms   []*pyhints.Expr
	fallsThrough bool
	body         *pyhints.Expr
}

func (fn *function) decorated(name string) bool {
	for _, d := range fn.decorators {
		if d == name {
			return true
		}
	}

	return false
}

// class is a class definition.
type class struct {
	def   *pyhints.Definition
	scope *scope

	bases      []*pyhints.Expr
	typeParams []string
	decorators []string

	methods map[string]*function
	// fields are instance attributes assigned through self in methods.
	fields map[string]*binding

	mro       []*class
	finalized bool
}

func (c *class) member(name string) *binding {
	for _, k := range c.mro {
		if b := k.scope.local(name, -1); b != nil {
			return b
		}
	}

	return nil
}

func (c *class) field(name string) *binding {
	for _, k := range c.mro {
		if b, ok := k.fields[name]; ok {
			return b
		}
	}

	return nil
}

func (c *class) method(name string, skipObject bool) *function {
	for _, k := range c.mro {
		if skipObject && k.def.QualifiedName == "builtins.object" {
			continue
		}

		if fn, ok := k.methods[name]; ok {
			return fn
		}
	}

	return nil
}

func (c *class) subclassOf(qualified string) bool {
	for _, k := range c.mro {
		if k.def.QualifiedName == qualified {
			return true
		}
	}

	return false
}
