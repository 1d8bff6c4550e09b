package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/wkalt/tsjoin/cli/util"
	"github.com/wkalt/tsjoin/routes"
	"github.com/wkalt/tsjoin/table"
)

type outputFormat struct {
	json     bool
	csv      bool
	expanded bool
}

// detect switches tables to CSV when stdout is not a terminal.
func (f outputFormat) detect() outputFormat {
	f.csv = util.StdoutRedirected()
	return f
}

// printResult writes a query or join response.
func printResult(w io.Writer, resp *routes.QueryResponse, format outputFormat) error {
	if format.json {
		return printJSON(w, resp)
	}
	if resp.Plan != "" {
		fmt.Fprintln(w, color.CyanString("%s", resp.Plan))
		fmt.Fprintln(w)
	}
	if err := printTable(w, resp.Result, format); err != nil {
		return err
	}
	if resp.Stats != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, color.CyanString("%s", resp.Stats.Print()))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printTable(w io.Writer, t *table.Table, format outputFormat) error {
	if format.csv {
		return table.WriteCSV(w, t)
	}
	util.PrintTable(w, t, format.expanded)
	fmt.Fprintf(w, "(%d rows)\n", t.Len())
	return nil
}

func printError(w io.Writer, err error) {
	msg := "ERROR: " + err.Error()
	var apiErr util.APIError
	if errors.As(err, &apiErr) && apiErr.Detail() != "" {
		msg += "\nDETAIL: " + apiErr.Detail()
	}
	fmt.Fprintln(w, color.RedString("%s", msg))
}
