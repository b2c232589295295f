package lsp_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap/zaptest"

	"github.com/rlch/pyhints/lsp"
)

// recordingClient records published diagnostics. The server calls nothing
// else on its client; any other call panics on the nil embedded interface.
type recordingClient struct {
	protocol.Client

	mu          sync.Mutex
	diagnostics []protocol.PublishDiagnosticsParams
}

func (c *recordingClient) PublishDiagnostics(_ context.Context, params *protocol.PublishDiagnosticsParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.diagnostics = append(c.diagnostics, *params)

	return nil
}

func newTestServer(t *testing.T) (*lsp.Server, *recordingClient) {
	t.Helper()

	client := &recordingClient{}

	return lsp.NewServer(client, zaptest.NewLogger(t)), client
}

const testURI = protocol.DocumentURI("file:///work/main.py")

const returnsInt = `def get_int() -> int:
    return 1

x1 = get_int()
`

func open(t *testing.T, server *lsp.Server, text string) {
	t.Helper()

	err := server.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, Version: 1, Text: text},
	})
	require.NoError(t, err)
}

// inlayLabels requests every hint of the test document the way a client
// does, through the generic request path.
func inlayLabels(t *testing.T, server *lsp.Server) []string {
	t.Helper()

	params := map[string]any{
		"textDocument": map[string]any{"uri": string(testURI)},
		"range": map[string]any{
			"start": map[string]any{"line": 0, "character": 0},
			"end":   map[string]any{"line": 100, "character": 0},
		},
	}

	result, err := server.Request(context.Background(), lsp.MethodInlayHint, params)
	require.NoError(t, err)

	hints, ok := result.([]lsp.InlayHint)
	require.True(t, ok, "unexpected result %T", result)

	out := make([]string, len(hints))

	for i, h := range hints {
		var b strings.Builder
		for _, part := range h.Label {
			b.WriteString(part.Value)
		}

		out[i] = b.String()
	}

	return out
}

func TestServer_Initialize(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	result, err := server.Initialize(context.Background(), &protocol.InitializeParams{})
	require.NoError(t, err)

	assert.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.Equal(t, true, result.Capabilities.HoverProvider)
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, lsp.ServerName, result.ServerInfo.Name)
}

func TestServer_DidOpen(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		server, client := newTestServer(t)
		open(t, server, returnsInt)

		require.Len(t, client.diagnostics, 1)
		assert.Empty(t, client.diagnostics[0].Diagnostics)
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		server, client := newTestServer(t)
		open(t, server, "x = (1,\ny = 2\n")

		require.Len(t, client.diagnostics, 1)
		require.NotEmpty(t, client.diagnostics[0].Diagnostics)
		assert.Equal(t, "pyhints", client.diagnostics[0].Diagnostics[0].Source)
	})
}

func TestServer_DidClose(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)
	open(t, server, returnsInt)

	err := server.DidClose(context.Background(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)

	require.Len(t, client.diagnostics, 2)
	assert.Empty(t, client.diagnostics[1].Diagnostics)
	assert.Empty(t, inlayLabels(t, server))
}

func TestServer_InlayHint(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, returnsInt+`
def greet(name, greeting):
    pass

greet("bob", "hi")
`)

	assert.Equal(t, []string{": int", "name:", "greeting:"}, inlayLabels(t, server))

	err := server.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "x = 1\n"}},
	})
	require.NoError(t, err)

	assert.Empty(t, inlayLabels(t, server))
}

func TestServer_InlayHintInvalidParams(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	_, err := server.Request(context.Background(), lsp.MethodInlayHint, map[string]any{"range": "everything"})
	require.ErrorIs(t, err, jsonrpc2.ErrInvalidParams)
}

func TestServer_Hover(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, returnsInt)

	hover, err := server.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 3, Character: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "```python\nx1: int\n```", hover.Contents.Value)

	hover, err = server.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 1, Character: 4},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestServer_TypeDefinition(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, `class Point:
    pass

p = Point()
`)

	locations, err := server.TypeDefinition(context.Background(), &protocol.TypeDefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 3, Character: 0},
		},
	})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, testURI, locations[0].URI)
	assert.Equal(t, uint32(0), locations[0].Range.Start.Line)
	assert.Equal(t, uint32(6), locations[0].Range.Start.Character)
}

func TestServer_SignatureHelp(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, `def greet(name, greeting):
    pass

greet("bob", "hi")
`)

	help, err := server.SignatureHelp(context.Background(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 3, Character: 14},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, help)
	require.Len(t, help.Signatures, 1)
	assert.True(t, strings.HasPrefix(help.Signatures[0].Label, "greet(name, greeting)"), help.Signatures[0].Label)
	assert.Len(t, help.Signatures[0].Parameters, 2)
	assert.Equal(t, uint32(1), help.ActiveParameter)
}

func TestServer_DocumentSymbol(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	open(t, server, returnsInt)

	symbols, err := server.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	fn, ok := symbols[0].(protocol.DocumentSymbol)
	require.True(t, ok)
	assert.Equal(t, "get_int", fn.Name)
	assert.Equal(t, protocol.SymbolKindFunction, fn.Kind)
	assert.Equal(t, "int", fn.Detail)

	x1, ok := symbols[1].(protocol.DocumentSymbol)
	require.True(t, ok)
	assert.Equal(t, "x1", x1.Name)
	assert.Equal(t, protocol.SymbolKindVariable, x1.Kind)
}

func TestServer_ConfigReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	config := filepath.Join(dir, ".pyhints.yaml")
	require.NoError(t, os.WriteFile(config, []byte("hints:\n  types:\n    variables: false\n"), 0o600))

	server, client := newTestServer(t)

	_, err := server.Initialize(context.Background(), &protocol.InitializeParams{RootURI: lsp.PathToURI(dir)})
	require.NoError(t, err)

	open(t, server, returnsInt)
	assert.Empty(t, inlayLabels(t, server))

	require.NoError(t, os.WriteFile(config, []byte("hints:\n  types:\n    variables: true\n"), 0o600))
	require.NoError(t, server.DidChangeConfiguration(context.Background(), &protocol.DidChangeConfigurationParams{}))

	assert.Equal(t, []string{": int"}, inlayLabels(t, server))
	assert.Len(t, client.diagnostics, 2)
}

func TestHandler_AdvertisesInlayHints(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)

	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), protocol.MethodInitialize, &protocol.InitializeParams{})
	require.NoError(t, err)

	var result any

	reply := func(_ context.Context, r any, err error) error {
		require.NoError(t, err)
		result = r

		return nil
	}

	require.NoError(t, lsp.Handler(server)(context.Background(), reply, req))

	m, ok := result.(map[string]any)
	require.True(t, ok, "unexpected result %T", result)

	caps, ok := m["capabilities"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"resolveProvider": false}, caps["inlayHintProvider"])
	assert.Equal(t, true, caps["hoverProvider"])

	info, ok := m["serverInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, lsp.ServerName, info["name"])
}
