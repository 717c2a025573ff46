package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats/csv"
	"github.com/ajitpratap0/cpandas/pkg/formats/jsonio"
)

// render prints t in the style selected by --output.
func (a *app) render(t *columnar.Table) error {
	switch a.output {
	case "", "table":
		header := t.ColumnNames()
		rows := make([][]string, t.NumRows())
		for i := range rows {
			row := make([]string, t.NumCols())
			for j, c := range t.Columns() {
				row[j] = csv.FormatCell(c, i, "null")
			}
			rows[i] = row
		}
		renderGrid(a.out, header, rows)
		fmt.Fprintf(a.out, "[%d rows x %d columns]\n", t.NumRows(), t.NumCols())
		return nil
	case "csv":
		return csv.Write(a.out, t, a.cfg.CSVOptions())
	case "ndjson":
		return jsonio.Write(a.out, t, jsonio.Lines)
	}
	return errors.Newf(errors.CodeInvalid, "unknown output style %q (want table, csv or ndjson)", a.output)
}

func renderGrid(w io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.AppendBulk(rows)
	tw.Render()
}
