package lsp

import (
	"context"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Handler returns the JSON-RPC handler for server. It advertises the
// capabilities protocol.ServerCapabilities cannot express.
func Handler(server *Server) jsonrpc2.Handler {
	return advertise(protocol.ServerHandler(server, nil), map[string]any{
		"inlayHintProvider": map[string]any{"resolveProvider": false},
	})
}

// advertise merges extra capabilities into the initialize reply.
func advertise(next jsonrpc2.Handler, capabilities map[string]any) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() != protocol.MethodInitialize {
			return next(ctx, reply, req)
		}

		return next(ctx, func(ctx context.Context, result any, err error) error {
			if err != nil {
				return reply(ctx, result, err)
			}

			merged, mergeErr := mergeCapabilities(result, capabilities)
			if mergeErr != nil {
				return reply(ctx, result, nil)
			}

			return reply(ctx, merged, nil)
		}, req)
	}
}

func mergeCapabilities(result any, capabilities map[string]any) (map[string]any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	caps, ok := m["capabilities"].(map[string]any)
	if !ok {
		caps = make(map[string]any)
		m["capabilities"] = caps
	}

	for k, v := range capabilities {
		caps[k] = v
	}

	return m, nil
}
