// Package lsp implements a Language Server Protocol server that serves
// Python inlay hints.
package lsp

import (
	"context"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/collect"
	"github.com/rlch/pyhints/pysource"
)

// ServerName is reported in the initialize reply.
const ServerName = "pyhints-lsp"

// Server implements the LSP Server interface for pyhints.
type Server struct {
	client protocol.Client
	logger *zap.Logger

	// Document state
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document

	// Configuration from .pyhints.yaml, replaced on reload.
	config     *pyhints.Config
	configPath string
	watcher    *configWatcher

	// Server state
	initialized   bool
	shutdown      bool
	workspaceRoot string
}

// Document represents an open document in the server.
type Document struct {
	URI     protocol.DocumentURI
	Version int32
	Content string

	// File is the parsed document; nil when ParseError is set.
	File       *pysource.File
	ParseError error

	// Hints are the hints of the current content, sorted by offset.
	Hints []pyhints.Hint

	collector *collect.Collector
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		client:    client,
		logger:    logger,
		documents: make(map[protocol.DocumentURI]*Document),
		config:    &pyhints.Config{},
	}
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("rootURI", string(params.RootURI)))

	if params.RootURI != "" {
		s.workspaceRoot = URIToPath(params.RootURI)
	} else if params.RootPath != "" {
		s.workspaceRoot = params.RootPath
	}

	if s.workspaceRoot != "" {
		s.logger.Info("Workspace root", zap.String("root", s.workspaceRoot))
		s.loadConfig()
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider:          true,
			TypeDefinitionProvider: true,
			// inlayHintProvider is added by Handler; protocol v0.12.0
			// predates it.
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    ServerName,
			Version: "0.1.0",
		},
	}, nil
}

// Initialized handles the initialized notification. It starts watching the
// workspace for configuration changes.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")
	s.initialized = true

	if s.workspaceRoot == "" {
		return nil
	}

	w, err := newConfigWatcher(s.workspaceRoot, s.logger, s.reloadConfig)
	if err != nil {
		s.logger.Warn("Config watcher disabled", zap.Error(err))

		return nil
	}

	s.watcher = w
	w.Start()

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")
	s.shutdown = true

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("Stopping config watcher", zap.Error(err))
		}
	}

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")

	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{
		URI:     params.TextDocument.URI,
		Version: params.TextDocument.Version,
		Content: params.TextDocument.Text,
	}

	s.analyze(ctx, doc)
	s.documents[params.TextDocument.URI] = doc

	s.publishDiagnostics(ctx, doc)

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Info("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync: the last change carries the whole content.
	if len(params.ContentChanges) > 0 {
		doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version

		s.analyze(ctx, doc)
		s.publishDiagnostics(ctx, doc)
	}

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, params.TextDocument.URI)

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	if err != nil {
		s.logger.Error("Failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// DidSave handles textDocument/didSave notifications.
func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Debug("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	return nil
}

// analyze parses the document and collects its hints. The caller holds
// s.mu.
func (s *Server) analyze(ctx context.Context, doc *Document) {
	path := URIToPath(doc.URI)

	f, err := pysource.Parse(ctx, path, []byte(doc.Content))

	doc.File, doc.ParseError, doc.Hints, doc.collector = f, err, nil, nil
	if err != nil {
		s.logger.Warn("Parse failed", zap.String("path", path), zap.Error(err))

		return
	}

	oracle, err := s.oracle(f)
	if err != nil {
		s.logger.Warn("Oracle unavailable", zap.String("path", path), zap.Error(err))

		return
	}

	collector, err := collect.FromConfig(s.config, oracle, path, s.logger)
	if err != nil {
		s.logger.Warn("Invalid suppression rules", zap.String("config", s.configPath), zap.Error(err))

		collector = collect.New(oracle, s.config.SettingsFor(path), s.logger)
	}

	doc.collector = collector
	doc.Hints = collector.All(f)

	s.logger.Debug("Analyzed",
		zap.String("path", path),
		zap.Int("sites", len(f.Sites())),
		zap.Int("hints", len(doc.Hints)))
}

// oracle returns the configured oracle for f. The tree-sitter oracle is
// the parsed file itself.
func (s *Server) oracle(f *pysource.File) (pyhints.Oracle, error) { //nolint:ireturn
	name := s.config.OracleName()
	if name == pysource.OracleName {
		return f, nil
	}

	return pyhints.NewOracle(name, f.Path, f.Src)
}
