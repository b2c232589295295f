package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

var errViewArgs = errors.New("view takes exactly one file")

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Browse a Python file with its hints; e toggles long hints",
		ArgsUsage: "FILE",
		Action:    runView,
	}
}

func runView(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errViewArgs
	}

	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	a, err := analyzeFile(ctx, cmd.Args().First(), logger)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newViewModel(a, DefaultStyles()), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}

	return nil
}

// viewModel is the bubbletea model of the viewer.
type viewModel struct {
	analysis *analysis
	styles   *Styles
	viewport viewport.Model
	ready    bool
	expand   bool
}

func newViewModel(a *analysis, styles *Styles) *viewModel {
	return &viewModel{analysis: a, styles: styles}
}

func (m *viewModel) Init() tea.Cmd {
	return nil
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "e":
			m.expand = !m.expand
			m.refresh()

			return m, nil
		}
	case tea.WindowSizeMsg:
		height := max(msg.Height-2, 1)

		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
			m.refresh()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}

		return m, nil
	}

	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

// refresh re-renders the file, keeping the scroll position.
func (m *viewModel) refresh() {
	if !m.ready {
		return
	}

	offset := m.viewport.YOffset
	m.viewport.SetContent(inline(m.analysis.src, m.analysis.hints, m.styles, m.expand))
	m.viewport.SetYOffset(offset)
}

func (m *viewModel) View() string {
	if !m.ready {
		return "loading..."
	}

	mode := "collapsed"
	if m.expand {
		mode = "expanded"
	}

	header := m.styles.Path.Render(m.analysis.path) + " " +
		m.styles.Help.Render(fmt.Sprintf("(%d hints, %s)", len(m.analysis.hints), mode))
	footer := m.styles.Help.Render(fmt.Sprintf("%3.f%%  e: toggle long hints  q: quit", m.viewport.ScrollPercent()*100))

	return header + "\n" + m.viewport.View() + "\n" + footer
}
