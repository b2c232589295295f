package main

import (
	"strings"

	"github.com/rlch/pyhints"
)

// inline returns src with every hint written into the text at its offset.
// Hints must be sorted by offset. Long type hints are collapsed unless
// expand is set.
func inline(src []byte, hints []pyhints.Hint, styles *Styles, expand bool) string {
	var b strings.Builder

	b.Grow(len(src) + 16*len(hints))

	prev := 0

	for _, h := range hints {
		at := min(max(h.Offset, prev), len(src))

		b.Write(src[prev:at])
		b.WriteString(marker(h, styles, expand))

		prev = at
	}

	b.Write(src[prev:])

	return b.String()
}

func marker(h pyhints.Hint, styles *Styles, expand bool) string {
	collapse := !expand && h.Node != nil && h.Node.TooLong()

	label := styles.TypeHint.Render(h.Label(collapse))
	if h.Kind == pyhints.HintParameter {
		label = styles.ParamHint.Render(h.Label(false))
	}

	return styles.Marker.Render(styles.Open) + label + styles.Marker.Render(styles.Close)
}
