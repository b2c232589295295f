package lsp

import (
	"context"
	"fmt"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
)

// go.lsp.dev/protocol v0.12.0 predates LSP 3.17, so the inlay hint types
// are declared here and the requests arrive through Server.Request.

// Inlay hint methods.
const (
	MethodInlayHint        = "textDocument/inlayHint"
	MethodInlayHintResolve = "inlayHint/resolve"
)

// InlayHintKind is the kind of an inlay hint.
type InlayHintKind int

// Inlay hint kinds.
const (
	InlayHintKindType      InlayHintKind = 1
	InlayHintKindParameter InlayHintKind = 2
)

// InlayHintParams are the parameters of textDocument/inlayHint.
type InlayHintParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range                  `json:"range"`
}

// InlayHintLabelPart is one run of a hint label. Parts with a location
// navigate to it on click.
type InlayHintLabelPart struct {
	Value    string             `json:"value"`
	Tooltip  string             `json:"tooltip,omitempty"`
	Location *protocol.Location `json:"location,omitempty"`
}

// InlayHint is an LSP 3.17 inlay hint.
type InlayHint struct {
	Position     protocol.Position    `json:"position"`
	Label        []InlayHintLabelPart `json:"label"`
	Kind         InlayHintKind        `json:"kind,omitempty"`
	Tooltip      string               `json:"tooltip,omitempty"`
	PaddingLeft  bool                 `json:"paddingLeft,omitempty"`
	PaddingRight bool                 `json:"paddingRight,omitempty"`
}

// Request handles the requests protocol.Server has no method for.
func (s *Server) Request(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case MethodInlayHint:
		var p InlayHintParams
		if err := redecode(params, &p); err != nil {
			return nil, err
		}

		return s.InlayHint(ctx, &p)
	case MethodInlayHintResolve:
		var h InlayHint
		if err := redecode(params, &h); err != nil {
			return nil, err
		}

		return &h, nil
	}

	s.logger.Debug("Unhandled request", zap.String("method", method))

	return nil, nil //nolint:nilnil // unknown methods get an empty result
}

// redecode converts generically decoded params into v.
func redecode(params, v any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %w", jsonrpc2.ErrInvalidParams, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", jsonrpc2.ErrInvalidParams, err)
	}

	return nil
}

// InlayHint handles textDocument/inlayHint: the hints of the document that
// fall inside the requested range.
func (s *Server) InlayHint(_ context.Context, params *InlayHintParams) ([]InlayHint, error) {
	s.logger.Debug("InlayHint",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("from", params.Range.Start.Line),
		zap.Uint32("to", params.Range.End.Line))

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok || doc.File == nil {
		return []InlayHint{}, nil
	}

	start := offsetOf(doc.File, params.Range.Start)
	end := offsetOf(doc.File, params.Range.End)

	hints := make([]InlayHint, 0, len(doc.Hints))

	for _, h := range doc.Hints {
		if h.Offset < start || h.Offset > end {
			continue
		}

		hints = append(hints, doc.inlayHint(h))
	}

	return hints, nil
}

// inlayHint converts a hint. Long type hints are collapsed, with the full
// text as tooltip.
func (d *Document) inlayHint(h pyhints.Hint) InlayHint {
	out := InlayHint{Position: position(d.File, h.Offset)}

	if h.Node == nil {
		out.Kind = InlayHintKindParameter
		out.Label = []InlayHintLabelPart{{Value: h.Label(false)}}
		out.PaddingRight = true

		return out
	}

	out.Kind = InlayHintKindType

	collapse := h.Node.TooLong()
	if collapse {
		out.Tooltip = h.Label(false)
	}

	out.Label = []InlayHintLabelPart{{Value: h.Prefix()}}

	for _, part := range h.Node.Parts(collapse) {
		label := InlayHintLabelPart{Value: part.Text}

		if loc, ok := d.location(part.Anchor); ok {
			label.Location = &loc
		} else if last := &out.Label[len(out.Label)-1]; last.Location == nil {
			last.Value += part.Text

			continue
		}

		out.Label = append(out.Label, label)
	}

	return out
}
