package pysource

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rlch/pyhints"
)

type extractor struct {
	f   *File
	src []byte
}

// frame is the context a node is visited in.
type frame struct {
	scope *scope
	// fn is the innermost enclosing def or lambda.
	fn *function
	// class is set directly inside a class body.
	class *class
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}

	return n.Content(x.src)
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (x *extractor) block(n *sitter.Node, fr frame) {
	for _, child := range namedChildren(n) {
		x.statement(child, fr)
	}
}

func (x *extractor) statement(n *sitter.Node, fr frame) {
	switch n.Type() {
	case "expression_statement":
		for _, child := range namedChildren(n) {
			switch child.Type() {
			case "assignment":
				x.assignment(child, fr)
			case "augmented_assignment":
				x.expr(child.ChildByFieldName("left"), fr)
				x.expr(child.ChildByFieldName("right"), fr)
			default:
				x.expr(child, fr)
			}
		}
	case "function_definition":
		x.function(n, nil, fr)
	case "class_definition":
		x.class(n, nil, fr)
	case "decorated_definition":
		x.decorated(n, fr)
	case "for_statement":
		x.forStatement(n, fr)
	case "with_statement":
		x.withStatement(n, fr)
	case "except_clause", "except_group_clause":
		x.exceptClause(n, fr)
	case "return_statement":
		x.returnStatement(n, fr)
	case "import_statement":
		x.importStatement(n, fr)
	case "import_from_statement":
		x.importFrom(n, fr)
	case "pass_statement", "break_statement", "continue_statement",
		"global_statement", "nonlocal_statement", "future_import_statement":
	default:
		x.generic(n, fr)
	}
}

// generic visits the children of a compound statement, treating what is not
// a statement as an expression.
func (x *extractor) generic(n *sitter.Node, fr frame) {
	for _, child := range namedChildren(n) {
		if statementLike(child.Type()) {
			x.statement(child, fr)
		} else {
			x.expr(child, fr)
		}
	}
}

func statementLike(typ string) bool {
	switch typ {
	case "block", "ERROR", "module":
		return true
	}

	return strings.HasSuffix(typ, "_statement") ||
		strings.HasSuffix(typ, "_clause") ||
		strings.HasSuffix(typ, "_definition")
}

func (x *extractor) assignment(n *sitter.Node, fr frame) {
	var targets []*sitter.Node

	annotation := ""
	if typ := n.ChildByFieldName("type"); typ != nil {
		annotation = x.text(typ)
	}

	cur := n

	var right *sitter.Node

	for {
		if left := cur.ChildByFieldName("left"); left != nil {
			targets = append(targets, left)
		}

		right = cur.ChildByFieldName("right")
		if right == nil || right.Type() != "assignment" {
			break
		}

		cur = right
	}

	value := x.expr(right, fr)
	spec := target{
		value:       value,
		annotation:  annotation,
		typeComment: x.typeComment(n),
		kind:        fr.scope.siteScope(),
	}

	for _, t := range targets {
		x.bindTarget(t, spec, nil, fr)
	}
}

// typeComment reports whether a "# type:" comment follows n on its last
// line.
func (x *extractor) typeComment(n *sitter.Node) bool {
	rest := x.src[n.EndByte():]
	if i := strings.IndexByte(string(rest), '\n'); i >= 0 {
		rest = rest[:i]
	}

	line := strings.TrimSpace(string(rest))
	if !strings.HasPrefix(line, "#") {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(line[1:]), "type:")
}

// target describes what a binding target receives.
type target struct {
	value       *pyhints.Expr
	iter        *pyhints.Expr
	exception   *pyhints.Expr
	manager     *pyhints.Expr
	annotation  string
	typeComment bool
	kind        pyhints.ScopeKind
}

func (x *extractor) bindTarget(n *sitter.Node, spec target, path []int, fr frame) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "identifier":
		x.bindName(n, spec, path, fr)
	case "attribute":
		x.bindAttribute(n, spec, path, fr)
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "expression_list":
		i := 0

		for _, child := range namedChildren(n) {
			switch child.Type() {
			case "list_splat_pattern", "list_splat":
				x.bindTarget(firstNamed(child), spec, extend(path, -1), fr)
			default:
				x.bindTarget(child, spec, extend(path, i), fr)
			}

			i++
		}
	case "parenthesized_expression", "list_splat_pattern", "as_pattern_target":
		x.bindTarget(firstNamed(n), spec, path, fr)
	default:
		x.expr(n, fr)
	}
}

func extend(path []int, i int) []int {
	out := make([]int, len(path), len(path)+1)
	copy(out, path)

	return append(out, i)
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}

	return children[0]
}

func (x *extractor) newBinding(name *sitter.Node, spec target, path []int) *binding {
	b := &binding{
		name:       x.text(name),
		offset:     int(name.StartByte()),
		annotation: spec.annotation,
		value:      spec.value,
		path:       path,
		iter:       spec.iter,
		exception:  spec.exception,
		manager:    spec.manager,
	}

	site := &pyhints.Site{
		Kind:        pyhints.SiteVariable,
		Name:        b.name,
		Annotated:   spec.annotation != "",
		TypeComment: spec.typeComment,
		Scope:       spec.kind,
		Offset:      int(name.StartByte()),
		End:         int(name.EndByte()),
		HintOffset:  int(name.EndByte()),
	}

	if len(path) == 0 && spec.iter == nil && spec.exception == nil && spec.manager == nil {
		site.Value = spec.value
	}

	b.site = site
	x.f.addSite(site)
	x.f.siteBindings[site] = b

	return b
}

func (x *extractor) bindName(n *sitter.Node, spec target, path []int, fr frame) {
	b := x.newBinding(n, spec, path)
	fr.scope.bind(b)

	plain := len(path) == 0 && spec.iter == nil && spec.exception == nil && spec.manager == nil
	if fr.class != nil && fr.scope == fr.class.scope && plain {
		fr.class.def.Attributes = append(fr.class.def.Attributes, pyhints.Param{
			Name:       b.name,
			Annotation: spec.annotation,
			HasDefault: spec.value != nil,
		})
	}
}

func (x *extractor) bindAttribute(n *sitter.Node, spec target, path []int, fr frame) {
	object := n.ChildByFieldName("object")
	attr := n.ChildByFieldName("attribute")

	x.expr(object, fr)

	if attr == nil {
		return
	}

	b := x.newBinding(n, spec, path)
	b.scope = fr.scope
	b.site.Qualified = true
	b.name = x.text(attr)

	if object == nil || object.Type() != "identifier" || fr.fn == nil || fr.fn.owner == nil {
		return
	}

	if len(fr.fn.params) == 0 || !fr.fn.params[0].Self || fr.fn.params[0].Name != x.text(object) {
		return
	}

	if _, ok := fr.fn.owner.fields[b.name]; !ok {
		fr.fn.owner.fields[b.name] = b
	}
}

func (x *extractor) forStatement(n *sitter.Node, fr frame) {
	iter := x.expr(n.ChildByFieldName("right"), fr)
	x.bindTarget(n.ChildByFieldName("left"), target{iter: iter, kind: pyhints.ScopeLoop}, nil, fr)

	if body := n.ChildByFieldName("body"); body != nil {
		x.block(body, fr)
	}

	if alt := n.ChildByFieldName("alternative"); alt != nil {
		x.generic(alt, fr)
	}
}

func (x *extractor) withStatement(n *sitter.Node, fr frame) {
	for _, child := range namedChildren(n) {
		if child.Type() != "with_clause" {
			x.statement(child, fr)

			continue
		}

		for _, item := range namedChildren(child) {
			value := item.ChildByFieldName("value")
			if value == nil {
				value = firstNamed(item)
			}

			if value == nil {
				continue
			}

			if value.Type() != "as_pattern" {
				x.expr(value, fr)

				continue
			}

			manager := x.expr(firstNamed(value), fr)

			alias := value.ChildByFieldName("alias")
			if children := namedChildren(value); alias == nil && len(children) > 1 {
				alias = children[len(children)-1]
			}

			x.bindTarget(alias, target{manager: manager, kind: fr.scope.siteScope()}, nil, fr)
		}
	}
}

func (x *extractor) exceptClause(n *sitter.Node, fr frame) {
	var (
		exprs []*sitter.Node
		body  *sitter.Node
		alias *sitter.Node
	)

	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "block":
			body = child
		case "as_pattern":
			exprs = append(exprs, firstNamed(child))

			alias = child.ChildByFieldName("alias")
		default:
			exprs = append(exprs, child)
		}
	}

	if alias == nil && len(exprs) == 2 && exprs[1].Type() == "identifier" {
		alias = exprs[1]
		exprs = exprs[:1]
	}

	var exception *pyhints.Expr
	if len(exprs) > 0 {
		exception = x.expr(exprs[0], fr)
	}

	if alias != nil {
		x.bindTarget(alias, target{exception: exception, kind: pyhints.ScopeExcept}, nil, fr)
	}

	if body != nil {
		x.block(body, fr)
	}
}

func (x *extractor) returnStatement(n *sitter.Node, fr frame) {
	var value *pyhints.Expr
	if child := firstNamed(n); child != nil {
		value = x.expr(child, fr)
	}

	if fr.fn != nil {
		fr.fn.returns = append(fr.fn.returns, value)
	}
}

// terminates reports whether control cannot fall off the end of block.
func terminates(block *sitter.Node) bool {
	if block == nil {
		return false
	}

	stmts := namedChildren(block)
	if len(stmts) == 0 {
		return false
	}

	last := stmts[len(stmts)-1]

	switch last.Type() {
	case "return_statement", "raise_statement":
		return true
	case "if_statement":
		if !terminates(last.ChildByFieldName("consequence")) {
			return false
		}

		var sawElse bool

		for _, alt := range namedChildren(last) {
			switch alt.Type() {
			case "elif_clause":
				if !terminates(alt.ChildByFieldName("consequence")) {
					return false
				}
			case "else_clause":
				sawElse = true

				if !terminates(alt.ChildByFieldName("body")) {
					return false
				}
			}
		}

		return sawElse
	case "with_statement":
		return terminates(last.ChildByFieldName("body"))
	case "try_statement":
		if !terminates(last.ChildByFieldName("body")) {
			return false
		}

		for _, clause := range namedChildren(last) {
			if clause.Type() != "except_clause" {
				continue
			}

			var body *sitter.Node

			for _, c := range namedChildren(clause) {
				if c.Type() == "block" {
					body = c
				}
			}

			if !terminates(body) {
				return false
			}
		}

		return true
	}

	return false
}

// ----------------------------------------------------------------------------
// Imports
// ----------------------------------------------------------------------------

func (x *extractor) importStatement(n *sitter.Node, fr frame) {
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "dotted_name":
			module := x.text(child)
			name, _, _ := strings.Cut(module, ".")
			fr.scope.bind(&binding{name: name, offset: int(child.StartByte()), module: name})
		case "aliased_import":
			module := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")

			if module != nil && alias != nil {
				fr.scope.bind(&binding{name: x.text(alias), offset: int(alias.StartByte()), module: x.text(module)})
			}
		}
	}
}

func (x *extractor) importFrom(n *sitter.Node, fr frame) {
	var (
		module   string
		imported bool
	)

	for _, child := range allChildren(n) {
		switch child.Type() {
		case "import":
			imported = true
		case "relative_import":
			module = x.text(child)
		case "dotted_name":
			if !imported {
				module = x.text(child)

				continue
			}

			name := x.text(child)
			fr.scope.bind(&binding{name: name, offset: int(child.StartByte()), module: module, imported: name})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")

			if name != nil && alias != nil {
				fr.scope.bind(&binding{
					name:     x.text(alias),
					offset:   int(alias.StartByte()),
					module:   module,
					imported: x.text(name),
				})
			}
		}
	}
}

// ----------------------------------------------------------------------------
// Definitions
// ----------------------------------------------------------------------------

func (x *extractor) decorated(n *sitter.Node, fr frame) {
	var decorators []string

	for _, child := range namedChildren(n) {
		if child.Type() != "decorator" {
			continue
		}

		for _, e := range namedChildren(child) {
			expr := x.expr(e, fr)
			if expr.Kind == pyhints.ExprCall {
				expr.Decorator = true
			}

			decorators = append(decorators, decoratorName(expr))
		}
	}

	def := n.ChildByFieldName("definition")
	if def == nil {
		return
	}

	switch def.Type() {
	case "function_definition":
		x.function(def, decorators, fr)
	case "class_definition":
		x.class(def, decorators, fr)
	default:
		x.statement(def, fr)
	}
}

func decoratorName(e *pyhints.Expr) string {
	e = pyhints.Peel(e)
	if e.Kind == pyhints.ExprCall {
		e = pyhints.Peel(e.Callee)
	}

	if e == nil {
		return ""
	}

	return e.Name
}

// completeHeader reports whether a def has everything up to its colon.
func completeHeader(n *sitter.Node) bool {
	for _, child := range allChildren(n) {
		if child.IsMissing() || child.Type() == "ERROR" {
			return false
		}

		if child.Type() == ":" {
			return true
		}
	}

	return false
}

func (x *extractor) function(n *sitter.Node, decorators []string, fr frame) {
	nameNode := n.ChildByFieldName("name")
	params := n.ChildByFieldName("parameters")

	if nameNode == nil || params == nil {
		x.generic(n, fr)

		return
	}

	name := x.text(nameNode)
	fn := &function{
		async:      hasChild(n, "async"),
		stub:       x.f.stub,
		decorators: decorators,
	}

	if fr.class != nil && fr.scope == fr.class.scope {
		fn.owner = fr.class
	}

	fn.def = &pyhints.Definition{
		Kind:          pyhints.DefFunction,
		Name:          name,
		QualifiedName: fr.scope.qualify(name),
		File:          filepath.Base(x.f.Path),
		Builtin:       x.f.stub,
		Decl:          x.f.decl(name, int(nameNode.StartByte())),
	}

	if fn.owner != nil {
		fn.def.Owner = fn.owner.def
	}

	fn.scope = newScope(scopeFunction, fr.scope, x.f, fn.def.QualifiedName)
	fn.scope.fn = fn

	if rt := n.ChildByFieldName("return_type"); rt != nil {
		fn.returnAnn = x.text(rt)
	}

	x.parameters(params, fn, fr)

	fr.scope.bind(&binding{name: name, offset: int(nameNode.StartByte()), fn: fn})
	x.f.functions[fn.def] = fn

	if fn.owner != nil && !accessor(decorators) {
		fn.owner.methods[name] = fn
	}

	var site *pyhints.Site
	if completeHeader(n) {
		site = &pyhints.Site{
			Kind:       pyhints.SiteFunction,
			Name:       name,
			Annotated:  fn.returnAnn != "",
			Scope:      fr.scope.siteScope(),
			Offset:     int(nameNode.StartByte()),
			End:        int(nameNode.EndByte()),
			HintOffset: int(params.EndByte()),
			Async:      fn.async,
		}
		fn.site = site
		x.f.addSite(site)
		x.f.siteFuncs[site] = fn
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		x.block(body, frame{scope: fn.scope, fn: fn})
	}

	fn.fallsThrough = !terminates(body)

	if site != nil {
		site.Generator = fn.generator
	}
}

// accessor reports whether decorators mark a property setter or deleter,
// which must not shadow the getter.
func accessor(decorators []string) bool {
	for _, d := range decorators {
		if d == "setter" || d == "deleter" {
			return true
		}
	}

	return false
}

func (x *extractor) parameters(n *sitter.Node, fn *function, fr frame) {
	method := fn.owner != nil && !fn.decorated("staticmethod")

	for _, child := range namedChildren(n) {
		p := &parameter{fn: fn}

		var value *sitter.Node

		switch child.Type() {
		case "identifier":
			p.Name = x.text(child)
		case "typed_parameter":
			for _, c := range namedChildren(child) {
				switch c.Type() {
				case "identifier":
					if p.Name == "" {
						p.Name = x.text(c)
					}
				case "list_splat_pattern":
					p.Kind = pyhints.ParamVarPositional
					p.Name = x.text(firstNamed(c))
				case "dictionary_splat_pattern":
					p.Kind = pyhints.ParamVarKeyword
					p.Name = x.text(firstNamed(c))
				case "type":
					p.Annotation = x.text(c)
				}
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				p.Name = x.text(name)
			}

			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Annotation = x.text(typ)
			}

			value = child.ChildByFieldName("value")
		case "list_splat_pattern":
			p.Kind = pyhints.ParamVarPositional
			p.Name = x.text(firstNamed(child))
		case "dictionary_splat_pattern":
			p.Kind = pyhints.ParamVarKeyword
			p.Name = x.text(firstNamed(child))
		case "positional_separator":
			p.Kind = pyhints.ParamSlash
		case "keyword_separator":
			p.Kind = pyhints.ParamStar
		default:
			continue
		}

		if value != nil {
			p.HasDefault = true
			p.defaultVal = x.expr(value, fr)
		}

		p.index = len(fn.params)
		if method && p.index == 0 && p.Kind == pyhints.ParamPositional {
			p.Self = true
		}

		fn.params = append(fn.params, p)

		if p.Name != "" && !p.IsMarker() {
			fn.scope.bind(&binding{name: p.Name, offset: int(child.StartByte()), param: p})
		}
	}

	fn.def.Params = make([]pyhints.Param, len(fn.params))
	for i, p := range fn.params {
		fn.def.Params[i] = p.Param
	}
}

func (x *extractor) class(n *sitter.Node, decorators []string, fr frame) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		x.generic(n, fr)

		return
	}

	name := x.text(nameNode)
	c := &class{
		decorators: decorators,
		methods:    make(map[string]*function),
		fields:     make(map[string]*binding),
	}

	c.def = &pyhints.Definition{
		Kind:          pyhints.DefClass,
		Name:          name,
		QualifiedName: fr.scope.qualify(name),
		File:          filepath.Base(x.f.Path),
		Builtin:       x.f.stub,
		Decl:          x.f.decl(name, int(nameNode.StartByte())),
	}

	c.scope = newScope(scopeClass, fr.scope, x.f, c.def.QualifiedName)
	c.scope.class = c

	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, base := range namedChildren(supers) {
			e := x.expr(base, fr)
			if base.Type() != "keyword_argument" && base.Type() != "dictionary_splat" {
				c.bases = append(c.bases, e)
			}
		}
	}

	fr.scope.bind(&binding{name: name, offset: int(nameNode.StartByte()), class: c})
	x.f.classes[c.def] = c
	x.f.classNames[c.def.QualifiedName] = c
	x.f.classList = append(x.f.classList, c)

	if body := n.ChildByFieldName("body"); body != nil {
		x.block(body, frame{scope: c.scope, class: c})
	}
}
