package pyhints

import (
	"strings"
)

// Separator joins the children of a HintNode.
type Separator int

// Separators.
const (
	SepNone Separator = iota
	SepUnion
	SepGeneric
)

// String returns the text placed between children.
func (s Separator) String() string {
	switch s {
	case SepUnion:
		return " | "
	case SepGeneric:
		return ", "
	default:
		return ""
	}
}

// EllipsisLabel marks elided children.
const EllipsisLabel = "..."

// LongThreshold is the descendant count above which a node is rendered
// collapsed by default.
const LongThreshold = 4

// HintNode is a rendered type hint: a label with optional children.
type HintNode struct {
	Label     string
	Anchor    *Declaration
	Children  []*HintNode
	Separator Separator
	// GenericWrapper is set when Label is parameterised by Children,
	// as in dict[str, int] or Type[A].
	GenericWrapper bool
	// Ellipsis is set on the marker node standing for elided children.
	Ellipsis bool
}

// Leaf returns a childless node.
func Leaf(label string) *HintNode {
	return &HintNode{Label: label}
}

// EllipsisNode returns the marker for elided children.
func EllipsisNode() *HintNode {
	return &HintNode{Label: EllipsisLabel, Ellipsis: true}
}

// Bracketed reports whether the node renders its children inside brackets.
func (n *HintNode) Bracketed() bool {
	return n.Label != "" && len(n.Children) > 0
}

// Descendants counts every node below n.
func (n *HintNode) Descendants() int {
	count := 0
	for _, c := range n.Children {
		count += 1 + c.Descendants()
	}

	return count
}

// TooLong reports whether n is eligible for collapsed presentation.
func (n *HintNode) TooLong() bool {
	return n.Descendants() > LongThreshold
}

// Text renders the node in full.
func (n *HintNode) Text() string {
	var b strings.Builder

	n.write(&b, false)

	return b.String()
}

// Collapsed renders the node with long subtrees folded to label[...].
func (n *HintNode) Collapsed() string {
	var b strings.Builder

	n.write(&b, true)

	return b.String()
}

// String implements fmt.Stringer.
func (n *HintNode) String() string {
	return n.Text()
}

func (n *HintNode) write(b *strings.Builder, collapse bool) {
	if collapse && n.TooLong() && n.Label != "" {
		b.WriteString(n.Label)
		b.WriteString("[" + EllipsisLabel + "]")

		return
	}

	b.WriteString(n.Label)

	if len(n.Children) == 0 {
		return
	}

	if n.Bracketed() {
		b.WriteString("[")
	}

	sep := n.Separator.String()
	for i, c := range n.Children {
		if i > 0 {
			b.WriteString(sep)
		}

		c.write(b, collapse)
	}

	if n.Bracketed() {
		b.WriteString("]")
	}
}

// Part is a run of hint text with an optional navigation anchor.
type Part struct {
	Text   string
	Anchor *Declaration
}

// Parts flattens the node into text runs, merging adjacent runs that carry
// no anchor.
func (n *HintNode) Parts(collapse bool) []Part {
	var parts []Part

	emit := func(text string, anchor *Declaration) {
		if text == "" {
			return
		}

		if anchor == nil && len(parts) > 0 && parts[len(parts)-1].Anchor == nil {
			parts[len(parts)-1].Text += text

			return
		}

		parts = append(parts, Part{Text: text, Anchor: anchor})
	}

	var walk func(n *HintNode)

	walk = func(n *HintNode) {
		if collapse && n.TooLong() && n.Label != "" {
			emit(n.Label, n.Anchor)
			emit("["+EllipsisLabel+"]", nil)

			return
		}

		emit(n.Label, n.Anchor)

		if len(n.Children) == 0 {
			return
		}

		if n.Bracketed() {
			emit("[", nil)
		}

		for i, c := range n.Children {
			if i > 0 {
				emit(n.Separator.String(), nil)
			}

			walk(c)
		}

		if n.Bracketed() {
			emit("]", nil)
		}
	}

	walk(n)

	return parts
}

// HintKind says what a hint annotates.
type HintKind int

// Hint kinds.
const (
	HintParameter HintKind = iota
	HintVariableType
	HintReturnType
)

// Hint is one entry for the rendering sink.
type Hint struct {
	Kind HintKind
	// Node is set for type hints, Text for parameter hints.
	Node *HintNode
	Text string
	// Offset is the byte offset the hint attaches to.
	Offset int
	// Before is set when the hint precedes the token at Offset.
	Before bool
}

// Prefix returns the punctuation shown before a type hint.
func (h Hint) Prefix() string {
	switch h.Kind {
	case HintVariableType:
		return ": "
	case HintReturnType:
		return "-> "
	default:
		return ""
	}
}

// Label renders the whole hint as the editor shows it.
func (h Hint) Label(collapse bool) string {
	if h.Node == nil {
		return h.Text + ":"
	}

	if collapse {
		return h.Prefix() + h.Node.Collapsed()
	}

	return h.Prefix() + h.Node.Text()
}
