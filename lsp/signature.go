package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/render"
)

// SignatureHelp handles textDocument/signatureHelp requests. It shows the
// parameters of the innermost call around the cursor, resolved the same
// way parameter hints are.
func (s *Server) SignatureHelp(_ context.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	s.logger.Debug("SignatureHelp",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok || doc.File == nil || doc.collector == nil {
		return nil, nil //nolint:nilnil
	}

	offset := offsetOf(doc.File, params.Position)

	call := innermostCall(doc.File.Calls(), offset)
	if call == nil {
		return nil, nil //nolint:nilnil
	}

	def, formal, err := doc.collector.Params.Signature(call)
	if err != nil || def == nil {
		if err != nil {
			s.logger.Debug("Signature lookup failed", zap.String("call", call.Text), zap.Error(err))
		}

		return nil, nil //nolint:nilnil
	}

	sig := protocol.SignatureInformation{
		Label:      def.Name + pyhints.FormatParams(formal),
		Parameters: make([]protocol.ParameterInformation, 0, len(formal)),
	}

	if def.Kind == pyhints.DefFunction {
		if ret, err := doc.collector.Oracle.ReturnType(def); err == nil && !pyhints.IsUnknown(ret) {
			sig.Label += " -> " + render.Text(ret)
		}
	}

	for _, p := range formal {
		sig.Parameters = append(sig.Parameters, protocol.ParameterInformation{Label: p.Presentable()})
	}

	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{sig},
		ActiveSignature: 0,
		ActiveParameter: uint32(activeParameter(call, formal, offset)), //nolint:gosec
	}, nil
}

// innermostCall returns the call whose argument list contains offset and
// spans the fewest bytes.
func innermostCall(calls []*pyhints.Expr, offset int) *pyhints.Expr {
	var best *pyhints.Expr

	for _, c := range calls {
		if c.Callee == nil || c.Decorator || offset <= c.Callee.End || offset >= c.End {
			continue
		}

		if best == nil || c.End-c.Offset < best.End-best.Offset {
			best = c
		}
	}

	return best
}

// activeParameter maps the argument under the cursor to an index into
// formal. Keyword arguments select their parameter by name; positional ones
// by position, clamped to a trailing *args.
func activeParameter(call *pyhints.Expr, formal []pyhints.Param, offset int) int {
	index := 0

	for _, arg := range call.Elements {
		if arg.End < offset {
			index++
		}
	}

	if index < len(call.Elements) {
		if arg := call.Elements[index]; arg.Kind == pyhints.ExprKeywordArg {
			for i, p := range formal {
				if p.Name == arg.Name {
					return i
				}
			}
		}
	}

	if index >= len(formal) {
		for i, p := range formal {
			if p.Kind == pyhints.ParamVarPositional {
				return i
			}
		}
	}

	return index
}
