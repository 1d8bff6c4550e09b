package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/wkalt/tsjoin/table"
)

/*
Tables print in one of two layouts. The grid layout puts one row per line under
a header. The expanded layout prints each row as a record, one field per line,
which stays readable when a table is wider than the terminal.
*/

////////////////////////////////////////////////////////////////////////////////

// PrintTable renders a table to w. If expanded is true, rows are printed as
// records.
func PrintTable(w io.Writer, t *table.Table, expanded bool) {
	headers := t.Schema.Names()
	data := t.Strings()
	if expanded {
		printRecords(w, headers, data)
		return
	}
	printGrid(w, headers, data)
}

func printGrid(w io.Writer, headers []string, data [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.AppendBulk(data)
	tw.Render()
}

func printRecords(w io.Writer, headers []string, data [][]string) {
	var headerWidth, valueWidth int
	for _, header := range headers {
		headerWidth = max(headerWidth, len(header))
	}
	for _, row := range data {
		for _, col := range row {
			valueWidth = max(valueWidth, len(col))
		}
	}
	// room for the widest record label.
	headerWidth = max(headerWidth, len(fmt.Sprintf("-[ RECORD %d ]", len(data))))
	dashes := strings.Repeat("-", valueWidth+2)
	for i, row := range data {
		label := fmt.Sprintf("-[ RECORD %d ]", i+1)
		fmt.Fprintf(w, "%s%s+%s\n", label, strings.Repeat("-", headerWidth-len(label)), dashes)
		for j, col := range row {
			fmt.Fprintf(w, "%-*s| %s\n", headerWidth, headers[j], col)
		}
	}
}
