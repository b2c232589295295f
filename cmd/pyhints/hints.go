package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

var errNoPythonFiles = errors.New("no .py files found")

func hintsCommand() *cli.Command {
	return &cli.Command{
		Name:      "hints",
		Usage:     "Print Python files with their inlay hints inlined",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "color",
				Usage: "colorize output: auto, always or never",
				Value: "auto",
			},
			&cli.BoolFlag{
				Name:    "expand",
				Aliases: []string{"e"},
				Usage:   "show long type hints in full",
			},
		},
		Action: runHints,
	}
}

func runHints(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoPythonFiles
	}

	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	results := make([]*analysis, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, file := range files {
		g.Go(func() error {
			a, err := analyzeFile(ctx, file, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			results[i] = a

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	styles := PlainStyles()
	if colorEnabled(cmd.String("color")) {
		styles = DefaultStyles()
	}

	return printHints(os.Stdout, results, styles, cmd.Bool("expand"))
}

// printHints writes the results in order, with a path header per file when
// there are several.
func printHints(w io.Writer, results []*analysis, styles *Styles, expand bool) error {
	for i, a := range results {
		if len(results) > 1 {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}

			if _, err := fmt.Fprintf(w, "%s\n", styles.Path.Render("==> "+a.path+" <==")); err != nil {
				return err
			}
		}

		text := inline(a.src, a.hints, styles, expand)
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}

		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}

	return nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)

			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() && path != arg && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			if !d.IsDir() && strings.HasSuffix(path, ".py") {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
