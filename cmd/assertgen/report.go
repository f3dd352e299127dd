package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-asserts/harness"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))
)

// styled reports whether w is a terminal worth coloring.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type painter struct {
	color bool
}

func (p painter) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func writeReport(w io.Writer, module string, rep *harness.Report) {
	p := painter{color: styled(w)}

	fmt.Fprintln(w, p.render(titleStyle, module))
	for _, r := range rep.Results {
		mark := p.render(passStyle, "PASS")
		if !r.Passed {
			mark = p.render(failStyle, "FAIL")
		}
		fmt.Fprintf(w, "%s %3d %s\n", mark, r.Ordinal, p.render(descStyle, r.Description))
		if !r.Passed && r.Detail != "" {
			fmt.Fprintf(w, "         %s\n", r.Detail)
		}
	}

	summary := fmt.Sprintf("%d checks, %d failed", len(rep.Results), rep.Failed)
	if rep.OK() {
		fmt.Fprintln(w, p.render(passStyle, summary))
	} else {
		fmt.Fprintln(w, p.render(failStyle, summary))
	}
}
