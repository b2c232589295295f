package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/pyhints"
)

// loadConfig reads the .pyhints.yaml nearest to the workspace root. A
// missing or broken file leaves the defaults in place.
func (s *Server) loadConfig() {
	cfg, path, err := pyhints.LoadConfigOrDefault(s.workspaceRoot)
	if err != nil {
		s.logger.Warn("Failed to load config, using defaults", zap.String("path", path), zap.Error(err))

		return
	}

	s.mu.Lock()
	s.config, s.configPath = cfg, path
	s.mu.Unlock()

	if path != "" {
		s.logger.Info("Loaded config", zap.String("path", path), zap.String("oracle", cfg.OracleName()))
	}
}

// reloadConfig reloads the configuration and re-analyzes every open
// document under it.
func (s *Server) reloadConfig() {
	s.loadConfig()

	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.documents {
		s.analyze(ctx, doc)
		s.publishDiagnostics(ctx, doc)
	}

	s.logger.Info("Config reloaded", zap.Int("documents", len(s.documents)))
}

// DidChangeConfiguration reloads the configuration from disk. Settings sent
// by the client are ignored; .pyhints.yaml is the only source.
func (s *Server) DidChangeConfiguration(_ context.Context, _ *protocol.DidChangeConfigurationParams) error {
	if s.workspaceRoot != "" {
		s.reloadConfig()
	}

	return nil
}

// DidChangeWatchedFiles reloads the configuration when the client reports a
// change to a config file.
func (s *Server) DidChangeWatchedFiles(_ context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		if change != nil && isConfigFile(URIToPath(change.URI)) {
			s.reloadConfig()

			return nil
		}
	}

	return nil
}
