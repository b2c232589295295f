package lsp

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/render"
)

// Hover handles textDocument/hover requests. Hovering a binding shows its
// inferred type, and the rule that hides its hint when one does.
func (s *Server) Hover(_ context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.logger.Debug("Hover",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok || doc.File == nil || doc.collector == nil {
		return nil, nil //nolint:nilnil
	}

	site := doc.File.SiteAt(offsetOf(doc.File, params.Position))
	if site == nil {
		return nil, nil //nolint:nilnil
	}

	typ, err := doc.collector.Oracle.TypeOf(site)
	if err != nil {
		s.logger.Debug("Hover type lookup failed", zap.String("name", site.Name), zap.Error(err))

		return nil, nil //nolint:nilnil
	}

	if pyhints.IsUnknown(typ) {
		return nil, nil //nolint:nilnil
	}

	rule, err := doc.collector.Chain.ExplainType(site, typ)
	if err != nil {
		s.logger.Debug("Hover explain failed", zap.String("name", site.Name), zap.Error(err))
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: hoverContent(site, typ, rule),
		},
		Range: rangePtr(offsetRange(doc.File, site.Offset, site.End)),
	}, nil
}

func hoverContent(site *pyhints.Site, typ pyhints.Type, rule string) string {
	var b strings.Builder

	b.WriteString("```python\n")

	switch site.Kind {
	case pyhints.SiteFunction:
		prefix := "def "
		if site.Async {
			prefix = "async def "
		}

		fmt.Fprintf(&b, "%s%s(...) -> %s\n", prefix, site.Name, render.Text(typ))
	default:
		fmt.Fprintf(&b, "%s: %s\n", site.Name, render.Text(typ))
	}

	b.WriteString("```")

	if rule != "" {
		fmt.Fprintf(&b, "\n\n*Hint hidden by `%s`*", rule)
	}

	return b.String()
}
