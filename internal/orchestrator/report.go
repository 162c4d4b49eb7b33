package orchestrator

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// reporter prints the user-facing progress lines of a run
type reporter struct {
	out     io.Writer
	dim     lipgloss.Style
	ok      lipgloss.Style
	skip    lipgloss.Style
	fail    lipgloss.Style
	heading lipgloss.Style
}

func newReporter(out io.Writer) *reporter {
	r := lipgloss.NewRenderer(out)
	return &reporter{
		out:     out,
		dim:     r.NewStyle().Foreground(lipgloss.Color("245")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
		skip:    r.NewStyle().Foreground(lipgloss.Color("214")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		heading: r.NewStyle().Bold(true),
	}
}

func (r *reporter) progress(n, total int, file string) {
	fmt.Fprintf(r.out, "%s %s\n", r.dim.Render(fmt.Sprintf("[%d/%d]", n, total)), file)
}

func (r *reporter) saved(path string) {
	fmt.Fprintf(r.out, "  %s %s\n", r.ok.Render("saved"), path)
}

func (r *reporter) skipped(path string) {
	fmt.Fprintf(r.out, "  %s %s (already exists)\n", r.skip.Render("skipped"), path)
}

func (r *reporter) failed(target string, err error) {
	// Only the first line; guidance is repeated in the final error
	msg := strings.SplitN(err.Error(), "\n", 2)[0]
	fmt.Fprintf(r.out, "  %s %s: %s\n", r.fail.Render("failed"), target, msg)
}

func (r *reporter) empty(dir string) {
	fmt.Fprintf(r.out, "No prompt files found in %s\n", dir)
}

func (r *reporter) summary(s *Summary) {
	line := fmt.Sprintf("Done: %d succeeded, %d failed, %d skipped (%d total)",
		s.Succeeded, s.Failed, s.Skipped, s.Total)
	fmt.Fprintf(r.out, "\n%s\n", r.heading.Render(line))
}
