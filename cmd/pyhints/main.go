// Command pyhints shows the inlay hints of Python files in the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "pyhints",
		Version: version,
		Usage:   "Python inlay hints in the terminal",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log analysis details to stderr",
			},
		},
		Commands: []*cli.Command{
			hintsCommand(),
			viewCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger logs to stderr when --verbose is set and discards otherwise.
func newLogger(cmd *cli.Command) *zap.Logger {
	if !cmd.Bool("verbose") {
		return zap.NewNop()
	}

	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}
