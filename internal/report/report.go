// Package report formats analysis results as terminal tables.
package report

import (
	"strconv"

	"github.com/woozymasta/kmlview/internal/geo"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newTable(numeric func(col int) bool, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric(col):
				return numberStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...)
}

// Summary renders the "Element Summary" table.
func Summary(s geo.Summary) string {
	t := newTable(func(col int) bool { return col == 1 }, "Element Type", "Count")
	for _, c := range s {
		t.Row(c.Type, strconv.Itoa(c.Count))
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Element Summary"), t.String())
}

// Detail renders the "Detailed Analysis" table. Types without a length
// show N/A instead of 0.
func Detail(st geo.Stats) string {
	t := newTable(func(col int) bool { return col > 0 }, "Element Type", "Count", "Total Length (meters)")
	for _, s := range st {
		t.Row(s.Type, strconv.Itoa(s.Count), geo.FormatLength(s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Detailed Analysis"), t.String())
}
