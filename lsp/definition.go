package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/render"
)

// TypeDefinition handles textDocument/typeDefinition: it jumps to the
// declarations of the user types in the inferred type of the binding under
// the cursor.
func (s *Server) TypeDefinition(_ context.Context, params *protocol.TypeDefinitionParams) ([]protocol.Location, error) {
	s.logger.Debug("TypeDefinition",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok || doc.File == nil || doc.collector == nil {
		return nil, nil
	}

	site := doc.File.SiteAt(offsetOf(doc.File, params.Position))
	if site == nil {
		return nil, nil
	}

	typ, err := doc.collector.Oracle.TypeOf(site)
	if err != nil || pyhints.IsUnknown(typ) {
		return nil, nil //nolint:nilerr // no type means nothing to jump to
	}

	var locations []protocol.Location

	seen := make(map[pyhints.Declaration]bool)

	for _, part := range render.Render(typ).Parts(false) {
		if part.Anchor == nil || seen[*part.Anchor] {
			continue
		}

		seen[*part.Anchor] = true

		if loc, ok := doc.location(part.Anchor); ok {
			locations = append(locations, loc)
		}
	}

	return locations, nil
}

// location converts a declaration in the document to an LSP location.
// Declarations elsewhere have no position the server can compute.
func (d *Document) location(decl *pyhints.Declaration) (protocol.Location, bool) {
	if decl == nil || decl.Builtin || d.File == nil || decl.Path != d.File.Path {
		return protocol.Location{}, false
	}

	return protocol.Location{
		URI:   d.URI,
		Range: offsetRange(d.File, decl.Offset, decl.Offset+len(decl.Name)),
	}, true
}
