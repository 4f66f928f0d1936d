// cmd_display.go - Tabellen-Ausgabe
// Hauptfunktionen: renderSummary, renderTable
package cmd

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/mayo-ml/mayo/estimate"
)

// renderSummary - Zeigt die Statistik aller Estimates
func renderSummary(w io.Writer, stats []estimate.Stat) {
	var data [][]string
	for _, s := range stats {
		data = append(data, []string{
			s.Path,
			s.History.String(),
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.Mean, 'f', 4, 64),
			strconv.FormatFloat(s.Std, 'f', 4, 64),
		})
	}

	renderTable(w, []string{"ESTIMATE", "HISTORY", "COUNT", "MEAN", "STD"}, data)
}

// renderTable - Schreibt eine randlose, linksbuendige Tabelle
func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
