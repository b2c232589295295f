package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/collect"
	"github.com/rlch/pyhints/pysource"
)

// analysis is one file with its hints.
type analysis struct {
	path  string
	src   []byte
	hints []pyhints.Hint
}

// analyzeFile parses path and collects its hints under the nearest
// .pyhints.yaml.
func analyzeFile(ctx context.Context, path string, logger *zap.Logger) (*analysis, error) {
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	cfg, cfgPath, err := pyhints.LoadConfigOrDefault(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfgPath, err)
	}

	f, err := pysource.Parse(ctx, path, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, e := range f.Errors {
		logger.Debug("Syntax error", zap.String("path", path), zap.Error(e))
	}

	var oracle pyhints.Oracle = f
	if name := cfg.OracleName(); name != pysource.OracleName {
		oracle, err = pyhints.NewOracle(name, path, src)
		if err != nil {
			return nil, err
		}
	}

	collector, err := collect.FromConfig(cfg, oracle, path, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfgPath, err)
	}

	return &analysis{path: path, src: src, hints: collector.All(f)}, nil
}
