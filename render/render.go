// Package render turns inferred types into bounded hint label trees.
package render

import (
	"github.com/rlch/pyhints"
)

// Caps on the number of children a node shows before an ellipsis.
const (
	MaxUnionMembers      = 2
	MaxCollectionMembers = 3
	MaxTupleMembers      = 2
)

// MaxDepth bounds the nesting rendered for recursive types.
const MaxDepth = 8

// Render converts typ into a label tree. It never fails: a nil type
// renders as "Unknown".
func Render(typ pyhints.Type) *pyhints.HintNode {
	return render(typ, 0)
}

// Text is shorthand for Render(typ).Text().
func Text(typ pyhints.Type) string {
	return Render(typ).Text()
}

func render(typ pyhints.Type, depth int) *pyhints.HintNode {
	if depth > MaxDepth {
		return pyhints.EllipsisNode()
	}

	switch t := typ.(type) {
	case nil, pyhints.UnknownType:
		return pyhints.Leaf("Unknown")
	case pyhints.NoneType:
		return pyhints.Leaf("None")
	case *pyhints.UnionType:
		return renderUnion(t, depth)
	case *pyhints.CollectionType:
		if t.Name != "" && len(t.Elements) > 0 {
			return renderCollection(t, depth)
		}

		return &pyhints.HintNode{Label: t.Name, Anchor: anchor(t.Decl, t.Builtin)}
	case *pyhints.TupleType:
		return renderTuple(t, depth)
	case *pyhints.ClassType:
		leaf := &pyhints.HintNode{Label: t.Name, Anchor: anchor(t.Decl, t.Builtin)}
		if !t.Definition {
			return leaf
		}

		return &pyhints.HintNode{
			Label:          "Type",
			Children:       []*pyhints.HintNode{leaf},
			Separator:      pyhints.SepGeneric,
			GenericWrapper: true,
		}
	case *pyhints.CallableType:
		return renderCallable(t, depth)
	case *pyhints.NamedType:
		return &pyhints.HintNode{Label: t.Name, Anchor: anchor(t.Decl, false)}
	default:
		return pyhints.Leaf(typ.String())
	}
}

func renderUnion(t *pyhints.UnionType, depth int) *pyhints.HintNode {
	var (
		children []*pyhints.HintNode
		hasNone  bool
	)

	seen := make(map[string]bool)

	for _, m := range t.Members {
		child := render(m, depth+1)

		label := child.Text()
		if seen[label] {
			continue
		}

		seen[label] = true

		if pyhints.IsNone(m) {
			hasNone = true
		}

		children = append(children, child)
	}

	if len(children) == 1 {
		return children[0]
	}

	if !hasNone && len(children) > MaxUnionMembers {
		children = append(children[:MaxUnionMembers:MaxUnionMembers], pyhints.EllipsisNode())
	}

	return &pyhints.HintNode{Children: children, Separator: pyhints.SepUnion}
}

func renderCollection(t *pyhints.CollectionType, depth int) *pyhints.HintNode {
	label := t.Name
	if t.TypedDict {
		label = "dict"
	}

	node := &pyhints.HintNode{Label: label, Anchor: anchor(t.Decl, t.Builtin)}
	if len(pyhints.KnownElements(t.Elements)) == 0 {
		return node
	}

	for i, e := range t.Elements {
		if i == MaxCollectionMembers {
			node.Children = append(node.Children, pyhints.EllipsisNode())

			break
		}

		node.Children = append(node.Children, render(e, depth+1))
	}

	node.Separator = pyhints.SepGeneric
	node.GenericWrapper = true

	return node
}

func renderTuple(t *pyhints.TupleType, depth int) *pyhints.HintNode {
	node := pyhints.Leaf("tuple")
	if len(pyhints.KnownElements(t.Elements)) == 0 {
		return node
	}

	count := max(t.Count, len(t.Elements))

	for i, e := range t.Elements {
		if i == MaxTupleMembers {
			break
		}

		node.Children = append(node.Children, render(e, depth+1))
	}

	if count > MaxTupleMembers {
		node.Children = append(node.Children, pyhints.EllipsisNode())
	}

	node.Separator = pyhints.SepGeneric
	node.GenericWrapper = true

	return node
}

// renderCallable produces "(params) -> (return)" as a label-less node so
// the return type keeps its own anchors.
func renderCallable(t *pyhints.CallableType, depth int) *pyhints.HintNode {
	params := t.ParamText
	if params == "" {
		params = pyhints.FormatParams(t.Params)
	}

	var ret *pyhints.HintNode
	if t.Return == nil {
		ret = pyhints.Leaf("Any")
	} else {
		ret = render(t.Return, depth+1)
	}

	return &pyhints.HintNode{
		Children: []*pyhints.HintNode{
			pyhints.Leaf(params + " -> ("),
			ret,
			pyhints.Leaf(")"),
		},
	}
}

func anchor(decl *pyhints.Declaration, builtin bool) *pyhints.Declaration {
	if decl == nil || builtin || decl.Builtin {
		return nil
	}

	return decl
}
