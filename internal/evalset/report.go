package evalset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Render writes a table of results followed by a summary line.
func (r *Report) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLANG\tEXPECTED\tGOT\tOUTCOME\tSTATUS")
	for _, res := range r.Results {
		status := passStyle.Render("PASS")
		if !res.Pass {
			status = failStyle.Render("FAIL")
		}
		lang := res.Case.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			res.Case.Name, lang, formatDigits(res.Case.Expected), formatDigits(res.Got), res.Grade.Outcome, status)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("evalset: render: %w", err)
	}

	summary := fmt.Sprintf("%d/%d passed", r.Passed(), len(r.Results))
	if r.OK() {
		summary = passStyle.Render(summary)
	} else {
		summary = failStyle.Render(summary) + mutedStyle.Render(fmt.Sprintf(" (%d failed)", r.Failed()))
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

func formatDigits(d []int) string {
	parts := make([]string, len(d))
	for i, v := range d {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
