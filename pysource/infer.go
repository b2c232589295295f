package pysource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/typeexpr"
)

// maxDepth bounds nested inference.
const maxDepth = 64

type memoKind int

const (
	memoBinding memoKind = iota
	memoExpr
	memoResult
)

type memoKey struct {
	ptr  any
	kind memoKind
}

// cached memoises compute under key. A key that is already being computed
// is a cycle and yields nil.
func (f *File) cached(key memoKey, compute func() pyhints.Type) pyhints.Type {
	if t, ok := f.memo[key]; ok {
		return t
	}

	if f.active[key] || f.depth >= maxDepth {
		return nil
	}

	f.active[key] = true
	f.depth++

	t := compute()

	f.depth--
	delete(f.active, key)
	f.memo[key] = t

	return t
}

// ----------------------------------------------------------------------------
// Oracle
// ----------------------------------------------------------------------------

// TypeOf implements pyhints.Oracle.
func (f *File) TypeOf(site *pyhints.Site) (pyhints.Type, error) { //nolint:ireturn
	f.mu.Lock()
	defer f.mu.Unlock()

	if fn, ok := f.siteFuncs[site]; ok {
		return f.result(fn), nil
	}

	b, ok := f.siteBindings[site]
	if !ok {
		return nil, fmt.Errorf("%w: site %q is not in %s", pyhints.ErrStale, site.Name, f.Path)
	}

	return f.bindingType(b), nil
}

// ReturnType implements pyhints.Oracle. Calling an async function yields a
// coroutine.
func (f *File) ReturnType(def *pyhints.Definition) (pyhints.Type, error) { //nolint:ireturn
	f.mu.Lock()
	defer f.mu.Unlock()

	if def == nil {
		return nil, nil
	}

	switch def.Kind {
	case pyhints.DefFunction, pyhints.DefLambda:
		if fn := f.functionOf(def); fn != nil {
			return f.callResult(fn, nil), nil
		}
	case pyhints.DefTarget:
		if fn := f.functionOf(def.Lambda); fn != nil {
			return f.callResult(fn, nil), nil
		}
	case pyhints.DefClass:
		if c := f.classOf(def); c != nil {
			return f.instance(c), nil
		}
	}

	return nil, nil
}

// ExprType implements pyhints.Oracle.
func (f *File) ExprType(e *pyhints.Expr) (pyhints.Type, error) { //nolint:ireturn
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.known(e); err != nil {
		return nil, err
	}

	return f.exprType(e), nil
}

// ResolveCallee implements pyhints.Oracle.
func (f *File) ResolveCallee(call *pyhints.Expr) (*pyhints.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.known(call); err != nil {
		return nil, err
	}

	return f.callee(call), nil
}

// MultiResolveCallee implements pyhints.Oracle. A name bound several times
// resolves to each callable binding, latest first.
func (f *File) MultiResolveCallee(call *pyhints.Expr) ([]*pyhints.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.known(call); err != nil {
		return nil, err
	}

	if call.Kind != pyhints.ExprCall {
		return nil, nil
	}

	callee := pyhints.Peel(call.Callee)
	if callee != nil && callee.Kind == pyhints.ExprRef {
		if s := f.scopeOf(callee); s != nil {
			var defs []*pyhints.Definition

			for _, b := range s.all(callee.Name) {
				def := f.bindingDef(b)
				if def != nil && (def.Kind == pyhints.DefFunction || def.Kind == pyhints.DefClass || def.Lambda != nil) {
					defs = append(defs, def)
				}
			}

			if len(defs) > 0 {
				return defs, nil
			}
		}
	}

	if def := f.callee(call); def != nil {
		return []*pyhints.Definition{def}, nil
	}

	return nil, nil
}

// ResolveReference implements pyhints.Oracle.
func (f *File) ResolveReference(ref *pyhints.Expr) (*pyhints.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.known(ref); err != nil {
		return nil, err
	}

	return f.reference(ref), nil
}

func (f *File) known(e *pyhints.Expr) error {
	if e == nil || f.scopeOf(e) != nil {
		return nil
	}

	return fmt.Errorf("%w: expression %q is not in %s", pyhints.ErrStale, e.Text, f.Path)
}

// ----------------------------------------------------------------------------
// Lookup
// ----------------------------------------------------------------------------

func (f *File) scopeOf(e *pyhints.Expr) *scope {
	if s, ok := f.exprScope[e]; ok {
		return s
	}

	for _, m := range f.modules {
		if s, ok := m.exprScope[e]; ok {
			return s
		}
	}

	return nil
}

func (f *File) functionOf(def *pyhints.Definition) *function {
	if def == nil {
		return nil
	}

	if fn, ok := f.functions[def]; ok {
		return fn
	}

	for _, m := range f.modules {
		if fn, ok := m.functions[def]; ok {
			return fn
		}
	}

	return nil
}

func (f *File) classOf(def *pyhints.Definition) *class {
	if def == nil {
		return nil
	}

	if c, ok := f.classes[def]; ok {
		return c
	}

	return f.classNamed(def.QualifiedName)
}

func (f *File) classNamed(qualified string) *class {
	if c, ok := f.classNames[qualified]; ok {
		return c
	}

	for _, m := range f.modules {
		if c, ok := m.classNames[qualified]; ok {
			return c
		}
	}

	return nil
}

func (f *File) builtin(name string) pyhints.Type { //nolint:ireturn
	if c := f.classNamed("builtins." + name); c != nil {
		return f.instance(c)
	}

	return &pyhints.ClassType{Name: name, QualifiedName: "builtins." + name, Builtin: true}
}

// imported follows a "from module import name" binding into a stub module.
func (f *File) imported(b *binding) *binding {
	m, ok := f.modules[b.module]
	if !ok {
		return nil
	}

	return m.module.local(b.imported, -1)
}

// ----------------------------------------------------------------------------
// Definitions
// ----------------------------------------------------------------------------

func (f *File) bindingDef(b *binding) *pyhints.Definition {
	for range maxDepth {
		if b == nil {
			return nil
		}

		switch {
		case b.fn != nil:
			return b.fn.def
		case b.class != nil:
			return b.class.def
		case b.imported != "":
			if next := f.imported(b); next != nil {
				b = next

				continue
			}

			return &pyhints.Definition{
				Kind:          pyhints.DefTarget,
				Name:          b.imported,
				QualifiedName: b.module + "." + b.imported,
			}
		case b.module != "":
			return &pyhints.Definition{Kind: pyhints.DefModule, Name: b.name, QualifiedName: b.module}
		}

		return f.targetDef(b)
	}

	return nil
}

func (f *File) targetDef(b *binding) *pyhints.Definition {
	if def, ok := f.targets[b]; ok {
		return def
	}

	def := &pyhints.Definition{
		Kind:          pyhints.DefTarget,
		Name:          b.name,
		QualifiedName: b.scope.qualify(b.name),
		Site:          b.site,
	}

	if b.scope.file != nil {
		def.File = b.scope.file.Path
		def.Decl = b.scope.file.decl(b.name, b.offset)
	}

	if v := pyhints.Peel(b.value); v != nil && v.Kind == pyhints.ExprLambda && len(b.path) == 0 {
		if fn := f.lambdaOf(v); fn != nil {
			def.Lambda = fn.def
		}
	}

	f.targets[b] = def

	return def
}

func (f *File) lambdaOf(e *pyhints.Expr) *function {
	if fn, ok := f.lambdas[e]; ok {
		return fn
	}

	for _, m := range f.modules {
		if fn, ok := m.lambdas[e]; ok {
			return fn
		}
	}

	return nil
}

// reference resolves a name or attribute.
func (f *File) reference(e *pyhints.Expr) *pyhints.Definition {
	e = pyhints.Peel(e)
	if e == nil {
		return nil
	}

	switch e.Kind {
	case pyhints.ExprRef:
		return f.bindingDef(f.lookup(e))
	case pyhints.ExprAttribute:
		return f.bindingDef(f.member(e))
	}

	return nil
}

func (f *File) lookup(ref *pyhints.Expr) *binding {
	s := f.scopeOf(ref)
	if s == nil {
		return nil
	}

	return s.lookup(ref.Name, ref.Offset)
}

// member finds the binding an attribute reference denotes.
func (f *File) member(e *pyhints.Expr) *binding {
	operand := pyhints.Peel(e.Operand)
	if operand == nil {
		return nil
	}

	if operand.Kind == pyhints.ExprRef {
		if b := f.lookup(operand); b != nil && b.module != "" && b.imported == "" {
			if m, ok := f.modules[b.module]; ok {
				return m.module.local(e.Name, -1)
			}

			return &binding{name: e.Name, module: b.module, imported: e.Name, scope: f.module}
		}
	}

	c, _, isClass := f.receiverClass(f.exprType(operand))
	if c == nil {
		return nil
	}

	if !isClass {
		if b := c.field(e.Name); b != nil {
			return b
		}
	}

	return c.member(e.Name)
}

// callee resolves what a call invokes.
func (f *File) callee(call *pyhints.Expr) *pyhints.Definition {
	if call == nil || call.Kind != pyhints.ExprCall {
		return nil
	}

	target := pyhints.Peel(call.Callee)

	def := f.reference(target)
	for range maxDepth {
		if def == nil || def.Kind != pyhints.DefTarget || def.Lambda != nil || def.Site == nil {
			break
		}

		// g = f
		v := pyhints.Peel(def.Site.Value)
		if v == nil || (v.Kind != pyhints.ExprRef && v.Kind != pyhints.ExprAttribute) {
			break
		}

		next := f.reference(v)
		if next == nil {
			break
		}

		def = next
	}

	if def != nil && def.Kind != pyhints.DefTarget {
		return def
	}

	if def != nil && def.Lambda != nil {
		return def
	}

	switch t := f.exprType(target).(type) {
	case *pyhints.ClassType:
		c := f.classNamed(t.QualifiedName)
		if c == nil {
			break
		}

		if t.Definition {
			return c.def
		}

		if fn := c.method("__call__", true); fn != nil {
			return fn.def
		}
	case *pyhints.CallableType:
		if t.Lambda && def != nil {
			return def
		}
	}

	return def
}

// ----------------------------------------------------------------------------
// Classes
// ----------------------------------------------------------------------------

// finalize resolves the bases of c and fills in the constructor details of
// its definition.
func (f *File) finalize(c *class) {
	if c.finalized {
		return
	}

	c.finalized = true
	c.mro = []*class{c}

	seen := map[*class]bool{c: true}

	var object *class

	for _, base := range c.bases {
		bc := f.classOf(f.reference(rootOf(base)))
		if bc == nil || seen[bc] {
			continue
		}

		f.finalize(bc)

		for _, k := range bc.mro {
			if seen[k] {
				continue
			}

			seen[k] = true

			if k.def.QualifiedName == "builtins.object" {
				object = k

				continue
			}

			c.mro = append(c.mro, k)
		}
	}

	if object == nil && c.def.QualifiedName != "builtins.object" {
		object = f.classNamed("builtins.object")
	}

	if object != nil {
		c.mro = append(c.mro, object)
	}

	c.typeParams = f.typeParams(c)

	for _, k := range c.mro {
		if k.def.QualifiedName == "builtins.object" {
			continue
		}

		if fn := k.methods["__init__"]; fn != nil {
			c.def.Initializer = fn.def

			break
		}

		if fn := k.methods["__new__"]; fn != nil {
			c.def.Initializer = fn.def

			break
		}
	}

	if fn := c.method("__call__", true); fn != nil {
		c.def.CallOperator = fn.def
	}
}

// typeParams returns the type variables a generic class is parameterised
// by: those of its Generic[...] base, or else every type variable its
// bases are subscripted with.
func (f *File) typeParams(c *class) []string {
	var params []string

	seen := make(map[string]bool)

	for _, base := range c.bases {
		b := pyhints.Peel(base)
		if b == nil || b.Kind != pyhints.ExprSubscript {
			continue
		}

		var names []string

		for _, e := range b.Elements {
			if tv, ok := f.exprType(e).(*pyhints.TypeVarType); ok {
				names = append(names, tv.Name)
			}
		}

		if def := f.reference(rootOf(b)); def != nil && def.QualifiedName == "typing.Generic" {
			return names
		}

		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				params = append(params, n)
			}
		}
	}

	return params
}

func rootOf(e *pyhints.Expr) *pyhints.Expr {
	e = pyhints.Peel(e)
	for e != nil && e.Kind == pyhints.ExprSubscript && e.Operand != nil {
		e = pyhints.Peel(e.Operand)
	}

	return e
}

var builtinSlots = map[string]int{
	"builtins.list":      1,
	"builtins.set":       1,
	"builtins.frozenset": 1,
	"builtins.dict":      2,
}

// instance is the type of an instance of c.
func (f *File) instance(c *class) pyhints.Type { //nolint:ireturn
	if slots, ok := builtinSlots[c.def.QualifiedName]; ok {
		return &pyhints.CollectionType{Name: c.def.Name, Elements: make([]pyhints.Type, slots), Builtin: true}
	}

	if c.def.QualifiedName == "builtins.tuple" {
		return &pyhints.TupleType{}
	}

	t := classType(c)

	for _, k := range c.mro[1:] {
		t.Supers = append(t.Supers, classType(k))
	}

	return t
}

// classObject is the type of c itself.
func (f *File) classObject(c *class) pyhints.Type { //nolint:ireturn
	t := classType(c)
	t.Definition = true

	return t
}

func classType(c *class) *pyhints.ClassType {
	return &pyhints.ClassType{
		Name:          c.def.Name,
		QualifiedName: c.def.QualifiedName,
		Builtin:       c.def.Builtin,
		Decl:          c.def.Decl,
	}
}

// receiverClass maps a type to the class whose members it has, the type
// arguments it carries, and whether it denotes the class itself.
func (f *File) receiverClass(t pyhints.Type) (*class, []pyhints.Type, bool) {
	switch t := t.(type) {
	case *pyhints.ClassType:
		return f.classNamed(t.QualifiedName), nil, t.Definition
	case *pyhints.CollectionType:
		for _, q := range []string{"builtins." + t.Name, "typing." + t.Name} {
			if c := f.classNamed(q); c != nil {
				return c, t.Elements, false
			}
		}

		if t.Decl != nil {
			if b := f.module.local(t.Name, -1); b != nil && b.class != nil {
				return b.class, t.Elements, false
			}
		}
	case *pyhints.TupleType:
		return f.classNamed("builtins.tuple"), []pyhints.Type{pyhints.NewUnion(t.Elements...)}, false
	}

	return nil, nil, false
}

func substitution(c *class, elems []pyhints.Type) map[string]pyhints.Type {
	if c == nil || len(c.typeParams) == 0 || len(elems) == 0 {
		return nil
	}

	m := make(map[string]pyhints.Type, len(c.typeParams))
	for i, p := range c.typeParams {
		if i < len(elems) && elems[i] != nil {
			m[p] = elems[i]
		}
	}

	return m
}

// ----------------------------------------------------------------------------
// Bindings
// ----------------------------------------------------------------------------

func (f *File) bindingType(b *binding) pyhints.Type { //nolint:ireturn
	if b == nil {
		return nil
	}

	return f.cached(memoKey{b, memoBinding}, func() pyhints.Type {
		switch {
		case b.fn != nil:
			return f.callableType(b.fn)
		case b.class != nil:
			return f.classObject(b.class)
		case b.imported != "":
			return f.bindingType(f.imported(b))
		case b.module != "":
			return nil
		case b.annotation != "":
			return f.annotation(b.annotation, b.scope)
		case b.param != nil:
			return f.paramType(b.param)
		case b.iter != nil:
			return f.unpack(f.elementType(f.exprType(b.iter)), b.path)
		case b.exception != nil:
			return f.exceptionType(b.exception)
		case b.manager != nil:
			return f.managerType(b.manager)
		case b.value != nil:
			return f.valueType(b.value, b.path)
		}

		return nil
	})
}

// valueType is the type of the element of value selected by path. Literal
// sequences are followed structurally as far as they go.
func (f *File) valueType(value *pyhints.Expr, path []int) pyhints.Type { //nolint:ireturn
	for len(path) > 0 {
		v := pyhints.Peel(value)
		if v == nil || (v.Kind != pyhints.ExprTuple && v.Kind != pyhints.ExprList) {
			break
		}

		i := path[0]
		if i < 0 || i >= len(v.Elements) || hasStar(v.Elements) {
			break
		}

		value = v.Elements[i]
		path = path[1:]
	}

	return f.unpack(f.exprType(value), path)
}

func hasStar(elems []*pyhints.Expr) bool {
	for _, e := range elems {
		if e.Kind == pyhints.ExprStarArg {
			return true
		}
	}

	return false
}

func (f *File) unpack(t pyhints.Type, path []int) pyhints.Type { //nolint:ireturn
	for _, i := range path {
		if tuple, ok := t.(*pyhints.TupleType); ok && i >= 0 {
			if i >= len(tuple.Elements) {
				return nil
			}

			t = tuple.Elements[i]

			continue
		}

		elem := f.elementType(t)
		if i < 0 {
			return &pyhints.CollectionType{Name: "list", Elements: []pyhints.Type{elem}, Builtin: true}
		}

		t = elem
	}

	return t
}

func (f *File) paramType(p *parameter) pyhints.Type { //nolint:ireturn
	fn := p.fn

	if p.Annotation != "" {
		t := f.annotation(p.Annotation, fn.scope.parent)

		switch p.Kind {
		case pyhints.ParamVarPositional:
			return &pyhints.TupleType{Elements: []pyhints.Type{t, &pyhints.NamedType{Name: "..."}}, Count: 2}
		case pyhints.ParamVarKeyword:
			return &pyhints.CollectionType{Name: "dict", Elements: []pyhints.Type{f.builtin("str"), t}, Builtin: true}
		}

		return t
	}

	switch p.Kind {
	case pyhints.ParamVarPositional:
		return &pyhints.TupleType{}
	case pyhints.ParamVarKeyword:
		return &pyhints.CollectionType{Name: "dict", Elements: []pyhints.Type{f.builtin("str"), nil}, Builtin: true}
	}

	if p.Self && fn.owner != nil {
		if fn.decorated("classmethod") || fn.def.Name == "__new__" {
			return f.classObject(fn.owner)
		}

		return f.instance(fn.owner)
	}

	if p.defaultVal != nil {
		if t := f.exprType(p.defaultVal); !pyhints.IsNone(t) {
			return t
		}
	}

	return nil
}

func (f *File) exceptionType(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	e = pyhints.Peel(e)
	if e == nil {
		return nil
	}

	if e.Kind == pyhints.ExprTuple {
		members := make([]pyhints.Type, 0, len(e.Elements))
		for _, el := range e.Elements {
			members = append(members, f.exceptionType(el))
		}

		return pyhints.NewUnion(members...)
	}

	if cls, ok := f.exprType(e).(*pyhints.ClassType); ok && cls.Definition {
		inst := *cls
		inst.Definition = false

		return &inst
	}

	return nil
}

func (f *File) managerType(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	t := f.exprType(e)

	c, elems, isClass := f.receiverClass(t)
	if c == nil || isClass {
		return t
	}

	if fn := c.method("__enter__", true); fn != nil {
		return f.callResult(fn, substitution(c, elems))
	}

	return t
}

// annotation converts an annotation written in scope s.
func (f *File) annotation(text string, s *scope) pyhints.Type { //nolint:ireturn
	return typeexpr.ParseType(text, f.resolver(s))
}

func (f *File) resolver(s *scope) typeexpr.Resolver {
	return func(name string) pyhints.Type {
		if s == nil {
			return nil
		}

		head, rest, dotted := strings.Cut(name, ".")

		b := s.lookup(head, -1)
		if dotted && b != nil {
			m, ok := f.modules[b.module]
			if !ok || b.imported != "" || strings.Contains(rest, ".") {
				return nil
			}

			b = m.module.local(rest, -1)
		}

		for range maxDepth {
			if b == nil || b.imported == "" {
				break
			}

			b = f.imported(b)
		}

		switch {
		case b == nil:
			return nil
		case b.class != nil:
			return f.instance(b.class)
		case b.value != nil:
			if tv, ok := f.bindingType(b).(*pyhints.TypeVarType); ok {
				return tv
			}
		}

		return nil
	}
}

// ----------------------------------------------------------------------------
// Functions
// ----------------------------------------------------------------------------

// result is what a function body produces: its declared return type, or
// the union of its return statements. Generators produce a generator.
func (f *File) result(fn *function) pyhints.Type { //nolint:ireturn
	return f.cached(memoKey{fn, memoResult}, func() pyhints.Type {
		if fn.lambda {
			return f.exprType(fn.body)
		}

		if fn.returnAnn != "" {
			return f.annotation(fn.returnAnn, fn.scope.parent)
		}

		if fn.stub {
			return nil
		}

		members := make([]pyhints.Type, 0, len(fn.returns)+1)

		for _, r := range fn.returns {
			if r == nil {
				members = append(members, pyhints.NoneType{})
			} else {
				members = append(members, f.exprType(r))
			}
		}

		if fn.fallsThrough {
			members = append(members, pyhints.NoneType{})
		}

		ret := pyhints.NewUnion(members...)

		if !fn.generator {
			return ret
		}

		yields := make([]pyhints.Type, 0, len(fn.yields)+len(fn.yieldFroms))

		for _, y := range fn.yields {
			if y == nil {
				yields = append(yields, pyhints.NoneType{})
			} else {
				yields = append(yields, f.exprType(y))
			}
		}

		for _, y := range fn.yieldFroms {
			yields = append(yields, f.elementType(f.exprType(y)))
		}

		anyType := &pyhints.NamedType{Name: "Any"}

		if fn.async {
			return &pyhints.CollectionType{Name: "AsyncGenerator", Elements: []pyhints.Type{pyhints.NewUnion(yields...), anyType}}
		}

		return &pyhints.CollectionType{Name: "Generator", Elements: []pyhints.Type{pyhints.NewUnion(yields...), anyType, ret}}
	})
}

// callResult is the type of a call to fn, with type variables replaced by
// subst.
func (f *File) callResult(fn *function, subst map[string]pyhints.Type) pyhints.Type { //nolint:ireturn
	t := substitute(f.result(fn), subst)
	if fn.stub {
		t = erase(t)
	}

	if fn.async && !fn.generator && !fn.lambda {
		anyType := &pyhints.NamedType{Name: "Any"}

		return &pyhints.CollectionType{Name: "Coroutine", Elements: []pyhints.Type{anyType, anyType, t}}
	}

	return t
}

func (f *File) callableType(fn *function) pyhints.Type { //nolint:ireturn
	t := &pyhints.CallableType{
		Params: fn.def.Params,
		Lambda: fn.lambda,
		Return: f.callResult(fn, nil),
		Decl:   fn.def.Decl,
	}

	if fn.lambda {
		t.ParamText = pyhints.FormatParams(fn.def.Params)
	}

	return t
}

// bindArgs solves the type variables of fn's parameter annotations from
// the positional arguments of call.
func (f *File) bindArgs(fn *function, call *pyhints.Expr, bound bool, subst map[string]pyhints.Type) map[string]pyhints.Type {
	params := fn.params
	if bound && len(params) > 0 && params[0].Self {
		params = params[1:]
	}

	var (
		p *parameter
		i int
	)

	for _, arg := range call.Elements {
		if arg.Kind == pyhints.ExprKeywordArg || arg.Kind == pyhints.ExprStarArg {
			break
		}

		if p == nil || p.Kind != pyhints.ParamVarPositional {
			for i < len(params) && params[i].IsMarker() {
				i++
			}

			if i >= len(params) {
				break
			}

			p = params[i]
			i++
		}

		if p.Kind == pyhints.ParamVarKeyword {
			break
		}

		if p.Annotation == "" {
			continue
		}

		if subst == nil {
			subst = make(map[string]pyhints.Type)
		}

		f.unify(f.annotation(p.Annotation, fn.scope.parent), f.exprType(arg), subst)
	}

	return subst
}

var iterableNames = map[string]bool{
	"Iterable": true, "Iterator": true, "Sequence": true, "Collection": true,
	"AsyncIterable": true, "AsyncIterator": true,
}

func (f *File) unify(param, arg pyhints.Type, subst map[string]pyhints.Type) {
	if arg == nil {
		return
	}

	switch p := param.(type) {
	case *pyhints.TypeVarType:
		if _, ok := subst[p.Name]; !ok {
			subst[p.Name] = arg
		}
	case *pyhints.CollectionType:
		if iterableNames[p.Name] && len(p.Elements) == 1 {
			f.unify(p.Elements[0], f.elementType(arg), subst)

			return
		}

		if a, ok := arg.(*pyhints.CollectionType); ok && a.Name == p.Name {
			for i := range min(len(p.Elements), len(a.Elements)) {
				f.unify(p.Elements[i], a.Elements[i], subst)
			}
		}
	}
}

// mapTypeVars rebuilds t with every type variable replaced by fn(tv).
func mapTypeVars(t pyhints.Type, fn func(*pyhints.TypeVarType) pyhints.Type) pyhints.Type { //nolint:ireturn
	switch t := t.(type) {
	case *pyhints.TypeVarType:
		return fn(t)
	case *pyhints.CollectionType:
		out := *t
		out.Elements = make([]pyhints.Type, len(t.Elements))

		for i, e := range t.Elements {
			out.Elements[i] = mapTypeVars(e, fn)
		}

		return &out
	case *pyhints.TupleType:
		out := *t
		out.Elements = make([]pyhints.Type, len(t.Elements))

		for i, e := range t.Elements {
			out.Elements[i] = mapTypeVars(e, fn)
		}

		return &out
	case *pyhints.UnionType:
		members := make([]pyhints.Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = mapTypeVars(m, fn)
		}

		return pyhints.NewUnion(members...)
	case *pyhints.CallableType:
		out := *t
		out.Return = mapTypeVars(t.Return, fn)

		return &out
	}

	return t
}

func substitute(t pyhints.Type, subst map[string]pyhints.Type) pyhints.Type { //nolint:ireturn
	if len(subst) == 0 {
		return t
	}

	return mapTypeVars(t, func(tv *pyhints.TypeVarType) pyhints.Type {
		if v, ok := subst[tv.Name]; ok {
			return v
		}

		return tv
	})
}

// erase drops the private type variables of stubs that nothing bound.
func erase(t pyhints.Type) pyhints.Type { //nolint:ireturn
	return mapTypeVars(t, func(tv *pyhints.TypeVarType) pyhints.Type {
		if strings.HasPrefix(tv.Name, "_") {
			return nil
		}

		return tv
	})
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func (f *File) exprType(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	if e == nil {
		return nil
	}

	return f.cached(memoKey{e, memoExpr}, func() pyhints.Type {
		return f.infer(e)
	})
}

func (f *File) infer(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	switch e.Kind {
	case pyhints.ExprLiteral:
		return f.literalType(e)
	case pyhints.ExprList:
		return f.sequence("list", e.Elements)
	case pyhints.ExprSet:
		return f.sequence("set", e.Elements)
	case pyhints.ExprDict:
		return f.dict(e.Elements)
	case pyhints.ExprTuple:
		elems := make([]pyhints.Type, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = f.exprType(el)
		}

		return &pyhints.TupleType{Elements: elems, Count: len(elems)}
	case pyhints.ExprParen:
		return f.exprType(e.Operand)
	case pyhints.ExprRef:
		return f.bindingType(f.lookup(e))
	case pyhints.ExprAttribute:
		return f.bindingTypeOn(e)
	case pyhints.ExprCall:
		return f.callType(e)
	case pyhints.ExprConditional, pyhints.ExprBoolOp:
		return pyhints.NewUnion(f.exprType(e.Left), f.exprType(e.Right))
	case pyhints.ExprBinary:
		return f.binaryType(e)
	case pyhints.ExprUnary:
		if e.Operator == "not" {
			return f.builtin("bool")
		}

		return f.exprType(e.Operand)
	case pyhints.ExprAwait:
		return awaited(f.exprType(e.Operand))
	case pyhints.ExprSubscript:
		return f.subscriptType(e)
	case pyhints.ExprListComp:
		return &pyhints.CollectionType{Name: "list", Elements: []pyhints.Type{f.exprType(e.Operand)}, Builtin: true}
	case pyhints.ExprSetComp:
		return &pyhints.CollectionType{Name: "set", Elements: []pyhints.Type{f.exprType(e.Operand)}, Builtin: true}
	case pyhints.ExprDictComp:
		var key, value pyhints.Type
		if kv := e.Operand; kv != nil && kv.Kind == pyhints.ExprKeyValue {
			key, value = f.exprType(kv.Left), f.exprType(kv.Right)
		}

		return &pyhints.CollectionType{Name: "dict", Elements: []pyhints.Type{key, value}, Builtin: true}
	case pyhints.ExprGenerator:
		anyType := &pyhints.NamedType{Name: "Any"}

		return &pyhints.CollectionType{Name: "Generator", Elements: []pyhints.Type{f.exprType(e.Operand), anyType, pyhints.NoneType{}}}
	case pyhints.ExprLambda:
		if fn := f.lambdaOf(e); fn != nil {
			return f.callableType(fn)
		}
	case pyhints.ExprOther:
		// Assignment expressions carry their value; yields do not.
		if e.Operator == "" && e.Operand != nil {
			return f.exprType(e.Operand)
		}
	}

	return nil
}

var literalClasses = map[pyhints.LiteralKind]string{
	pyhints.LiteralInt:      "int",
	pyhints.LiteralFloat:    "float",
	pyhints.LiteralComplex:  "complex",
	pyhints.LiteralString:   "str",
	pyhints.LiteralBytes:    "bytes",
	pyhints.LiteralBool:     "bool",
	pyhints.LiteralEllipsis: "ellipsis",
}

func (f *File) literalType(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	if e.Literal == pyhints.LiteralNone {
		return pyhints.NoneType{}
	}

	return f.builtin(literalClasses[e.Literal])
}

func (f *File) sequence(name string, elems []*pyhints.Expr) pyhints.Type { //nolint:ireturn
	members := make([]pyhints.Type, 0, len(elems))

	for _, el := range elems {
		if el.Kind == pyhints.ExprStarArg {
			members = append(members, f.elementType(f.exprType(el.Operand)))
		} else {
			members = append(members, f.exprType(el))
		}
	}

	return &pyhints.CollectionType{Name: name, Elements: []pyhints.Type{pyhints.NewUnion(members...)}, Builtin: true}
}

func (f *File) dict(entries []*pyhints.Expr) pyhints.Type { //nolint:ireturn
	var keys, values []pyhints.Type

	for _, kv := range entries {
		switch kv.Kind {
		case pyhints.ExprKeyValue:
			keys = append(keys, f.exprType(kv.Left))
			values = append(values, f.exprType(kv.Right))
		case pyhints.ExprStarArg:
			if d, ok := f.exprType(kv.Operand).(*pyhints.CollectionType); ok && len(d.Elements) == 2 {
				keys = append(keys, d.Elements[0])
				values = append(values, d.Elements[1])
			}
		}
	}

	return &pyhints.CollectionType{
		Name:     "dict",
		Elements: []pyhints.Type{pyhints.NewUnion(keys...), pyhints.NewUnion(values...)},
		Builtin:  true,
	}
}

// bindingTypeOn is the type of an attribute reference.
func (f *File) bindingTypeOn(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	operand := pyhints.Peel(e.Operand)

	if u, ok := f.exprType(operand).(*pyhints.UnionType); ok {
		members := make([]pyhints.Type, 0, len(u.Members))

		for _, m := range u.Members {
			if !pyhints.IsNone(m) {
				members = append(members, f.memberType(m, e.Name))
			}
		}

		return pyhints.NewUnion(members...)
	}

	b := f.member(e)
	if b == nil {
		return nil
	}

	if b.fn != nil && b.fn.decorated("property") {
		c, elems, isClass := f.receiverClass(f.exprType(operand))
		if !isClass {
			return f.callResult(b.fn, substitution(c, elems))
		}
	}

	return f.bindingType(b)
}

func (f *File) memberType(t pyhints.Type, name string) pyhints.Type { //nolint:ireturn
	c, elems, isClass := f.receiverClass(t)
	if c == nil {
		return nil
	}

	if !isClass {
		if b := c.field(name); b != nil {
			return f.bindingType(b)
		}
	}

	b := c.member(name)
	if b == nil {
		return nil
	}

	if b.fn != nil && b.fn.decorated("property") && !isClass {
		return f.callResult(b.fn, substitution(c, elems))
	}

	return f.bindingType(b)
}

func (f *File) callType(call *pyhints.Expr) pyhints.Type { //nolint:ireturn
	target := pyhints.Peel(call.Callee)

	if def := f.callee(call); def != nil {
		switch def.Kind {
		case pyhints.DefClass:
			if c := f.classOf(def); c != nil {
				return f.construct(c, call)
			}
		case pyhints.DefFunction:
			if fn := f.functionOf(def); fn != nil {
				subst, bound := f.receiverSubstitution(target)
				return f.callResult(fn, f.bindArgs(fn, call, bound, subst))
			}
		case pyhints.DefTarget:
			if fn := f.functionOf(def.Lambda); fn != nil {
				return f.callResult(fn, nil)
			}
		}
	}

	switch t := f.exprType(target).(type) {
	case *pyhints.CallableType:
		return t.Return
	case *pyhints.ClassType:
		if t.Definition {
			inst := *t
			inst.Definition = false

			return &inst
		}
	}

	return nil
}

// receiverSubstitution binds the type parameters of the object a method is
// called on, and reports whether the call is a bound method call.
func (f *File) receiverSubstitution(target *pyhints.Expr) (map[string]pyhints.Type, bool) {
	if target == nil || target.Kind != pyhints.ExprAttribute {
		return nil, false
	}

	c, elems, isClass := f.receiverClass(f.exprType(pyhints.Peel(target.Operand)))
	if c == nil {
		return nil, false
	}

	if isClass {
		return nil, false
	}

	subst := substitution(c, elems)
	if subst == nil {
		subst = make(map[string]pyhints.Type)
	}

	return subst, true
}

// construct is the type of a call to class c.
func (f *File) construct(c *class, call *pyhints.Expr) pyhints.Type { //nolint:ireturn
	var arg *pyhints.Expr
	if len(call.Elements) == 1 && call.Elements[0].Kind != pyhints.ExprKeywordArg && call.Elements[0].Kind != pyhints.ExprStarArg {
		arg = call.Elements[0]
	}

	switch c.def.QualifiedName {
	case "typing.TypeVar":
		if len(call.Elements) > 0 {
			if name := pyhints.Peel(call.Elements[0]); name != nil && name.Kind == pyhints.ExprLiteral && name.Literal == pyhints.LiteralString {
				return &pyhints.TypeVarType{Name: name.Name}
			}
		}

		return nil
	case "builtins.list", "builtins.set", "builtins.frozenset":
		var elem pyhints.Type
		if arg != nil {
			elem = f.elementType(f.exprType(arg))
		}

		return &pyhints.CollectionType{Name: c.def.Name, Elements: []pyhints.Type{elem}, Builtin: true}
	case "builtins.type":
		if arg == nil {
			break
		}

		if cls, ok := f.exprType(arg).(*pyhints.ClassType); ok && !cls.Definition {
			obj := *cls
			obj.Definition = true

			return &obj
		}
	}

	return f.instance(c)
}

var comparisonTokens = map[string]bool{
	"<": true, ">": true, "==": true, ">=": true, "<=": true, "!=": true, "<>": true,
	"in": true, "not": true, "is": true,
}

func (f *File) binaryType(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	if ops := strings.Fields(e.Operator); len(ops) > 0 && comparisonTokens[ops[0]] {
		return f.builtin("bool")
	}

	left, right := f.exprType(e.Left), f.exprType(e.Right)

	switch {
	case left == nil:
		return right
	case e.Operator == "/" && isBuiltin(left, "int") && isBuiltin(right, "int"):
		return f.builtin("float")
	case isBuiltin(left, "int") && isBuiltin(right, "float"):
		return right
	}

	return left
}

func isBuiltin(t pyhints.Type, name string) bool {
	c, ok := t.(*pyhints.ClassType)

	return ok && !c.Definition && c.QualifiedName == "builtins."+name
}

// awaited is the result of awaiting a value of type t.
func awaited(t pyhints.Type) pyhints.Type { //nolint:ireturn
	switch t := t.(type) {
	case *pyhints.CollectionType:
		switch t.Name {
		case "Coroutine":
			if len(t.Elements) == 3 {
				return t.Elements[2]
			}
		case "Awaitable":
			if len(t.Elements) == 1 {
				return t.Elements[0]
			}
		}
	case *pyhints.UnionType:
		members := make([]pyhints.Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = awaited(m)
		}

		return pyhints.NewUnion(members...)
	}

	return nil
}

var mappingNames = map[string]bool{
	"dict": true, "defaultdict": true, "OrderedDict": true, "Mapping": true, "MutableMapping": true,
}

func (f *File) subscriptType(e *pyhints.Expr) pyhints.Type { //nolint:ireturn
	t := f.exprType(pyhints.Peel(e.Operand))
	if len(e.Elements) != 1 {
		return nil
	}

	index := pyhints.Peel(e.Elements[0])
	slice := index.Kind == pyhints.ExprOther && strings.Contains(index.Text, ":")

	switch t := t.(type) {
	case *pyhints.TupleType:
		if slice {
			return &pyhints.TupleType{}
		}

		if i, ok := intIndex(index); ok {
			if i < 0 {
				i += len(t.Elements)
			}

			if i >= 0 && i < len(t.Elements) {
				return t.Elements[i]
			}

			return nil
		}

		return pyhints.NewUnion(t.Elements...)
	case *pyhints.CollectionType:
		if slice {
			return t
		}

		if mappingNames[t.Name] && len(t.Elements) == 2 {
			return t.Elements[1]
		}

		if len(t.Elements) > 0 {
			return t.Elements[0]
		}
	case *pyhints.ClassType:
		if t.Definition {
			return nil
		}

		if c := f.classNamed(t.QualifiedName); c != nil {
			if fn := c.method("__getitem__", true); fn != nil {
				return f.callResult(fn, nil)
			}
		}
	}

	return nil
}

func intIndex(e *pyhints.Expr) (int, bool) {
	sign := 1
	if e.Kind == pyhints.ExprUnary && e.Operator == "-" {
		sign = -1
		e = pyhints.Peel(e.Operand)
	}

	if e == nil || e.Kind != pyhints.ExprLiteral || e.Literal != pyhints.LiteralInt {
		return 0, false
	}

	i, err := strconv.Atoi(strings.ReplaceAll(e.Text, "_", ""))
	if err != nil {
		return 0, false
	}

	return sign * i, true
}

// elementType is the type produced by iterating over a value of type t.
func (f *File) elementType(t pyhints.Type) pyhints.Type { //nolint:ireturn
	switch t := t.(type) {
	case nil:
		return nil
	case *pyhints.UnionType:
		members := make([]pyhints.Type, 0, len(t.Members))

		for _, m := range t.Members {
			if !pyhints.IsNone(m) {
				members = append(members, f.elementType(m))
			}
		}

		return pyhints.NewUnion(members...)
	case *pyhints.TupleType:
		return pyhints.NewUnion(t.Elements...)
	}

	c, elems, isClass := f.receiverClass(t)
	if c != nil && !isClass {
		if fn := c.method("__iter__", true); fn != nil {
			if it, ok := f.callResult(fn, substitution(c, elems)).(*pyhints.CollectionType); ok && len(it.Elements) > 0 {
				return it.Elements[0]
			}
		}
	}

	if coll, ok := t.(*pyhints.CollectionType); ok && len(coll.Elements) > 0 {
		return coll.Elements[0]
	}

	return nil
}
