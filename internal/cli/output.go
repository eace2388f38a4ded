package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/cling/pkg/types"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")).Bold(true)
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f97316")).Bold(true)
	styleCell   = lipgloss.NewStyle().PaddingRight(2)
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// render writes v as JSON in --json mode and calls human otherwise.
func render(w io.Writer, v any, human func(io.Writer) error) error {
	if flags.jsonMode {
		return printJSON(w, v)
	}
	return human(w)
}

// printTable writes rows under bold headers without borders.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, styleMuted.Render("(none)"))
		return err
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
		BorderColumn(false).BorderHeader(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.PaddingRight(2)
			}
			return styleCell
		})
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// printFields writes label: value pairs, one per line.
func printFields(w io.Writer, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, err := fmt.Fprintf(w, "%s %s\n", styleMuted.Render(pairs[i]+":"), pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

func priorityLabel(p int) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(types.PriorityColor(p))).Render(fmt.Sprintf("P%d", p))
}

func statusLabel(s string) string {
	switch s {
	case types.StatusDone:
		return styleOK.Render(s)
	case types.StatusInProgress:
		return styleWarn.Render(s)
	}
	return s
}
