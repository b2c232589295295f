// Command pyhints-lsp serves Python inlay hints over the Language Server
// Protocol on stdio.
package main

import (
	"context"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/pyhints/lsp"
)

// levelEnv overrides the log level, e.g. PYHINTS_LOG_LEVEL=debug.
const levelEnv = "PYHINTS_LOG_LEVEL"

func main() {
	// stdout carries the protocol, so logs go to stderr.
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(logLevel(os.Getenv(levelEnv)))

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting pyhints-lsp server")

	err = run(context.Background(), logger, os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func logLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil || s == "" {
		return zapcore.InfoLevel
	}

	return level
}

func run(ctx context.Context, logger *zap.Logger, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&stdio{in, out})
	conn := jsonrpc2.NewConn(stream)

	client := protocol.ClientDispatcher(conn, logger)
	server := lsp.NewServer(client, logger)

	conn.Go(ctx, lsp.Handler(server))

	<-conn.Done()

	return conn.Err()
}

// stdio joins a reader and a writer into the io.ReadWriteCloser a stream
// needs.
type stdio struct {
	io.Reader
	io.Writer
}

func (s *stdio) Close() error {
	if c, ok := s.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
