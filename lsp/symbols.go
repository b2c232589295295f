package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/render"
)

// DocumentSymbol handles textDocument/documentSymbol requests. Every binding
// site is listed in source order with its inferred type as detail.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	s.logger.Debug("DocumentSymbol",
		zap.String("uri", string(params.TextDocument.URI)))

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok || doc.File == nil || doc.collector == nil {
		return nil, nil
	}

	sites := doc.File.Sites()
	result := make([]any, 0, len(sites))

	for _, site := range sites {
		result = append(result, doc.symbol(site))
	}

	return result, nil
}

func (d *Document) symbol(site *pyhints.Site) protocol.DocumentSymbol {
	kind := protocol.SymbolKindVariable

	switch {
	case site.Kind == pyhints.SiteFunction:
		kind = protocol.SymbolKindFunction
	case site.Qualified:
		kind = protocol.SymbolKindField
	}

	var detail string
	if typ, err := d.collector.Oracle.TypeOf(site); err == nil && !pyhints.IsUnknown(typ) {
		detail = render.Text(typ)
	}

	name := offsetRange(d.File, site.Offset, site.End)

	return protocol.DocumentSymbol{
		Name:           site.Name,
		Detail:         detail,
		Kind:           kind,
		Range:          name,
		SelectionRange: name,
	}
}
