package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// diagnosticSource tags every diagnostic the server publishes.
const diagnosticSource = "pyhints"

// publishDiagnostics reports the syntax errors of the document. Hints are
// still served around them.
func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	diagnostics := make([]protocol.Diagnostic, 0)

	switch {
	case doc.ParseError != nil:
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Severity: protocol.DiagnosticSeverityError,
			Source:   diagnosticSource,
			Message:  doc.ParseError.Error(),
		})
	case doc.File != nil:
		for _, e := range doc.File.Errors {
			d := protocol.Diagnostic{
				Range:    offsetRange(doc.File, e.Offset, e.End),
				Severity: protocol.DiagnosticSeverityError,
				Code:     "syntax",
				Source:   diagnosticSource,
				Message:  e.Message,
			}
			s.logger.Debug("Publishing diagnostic",
				zap.Uint32("line", d.Range.Start.Line),
				zap.Uint32("char", d.Range.Start.Character),
				zap.String("message", e.Message))
			diagnostics = append(diagnostics, d)
		}
	}

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     uint32(doc.Version), //nolint:gosec // LSP version numbers are always non-negative
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Error("Failed to publish diagnostics", zap.Error(err))
	}
}
