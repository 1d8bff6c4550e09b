package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/table"
)

var (
	tablesFormat outputFormat
)

var catalogSchema = table.MustSchema(
	table.Column{Name: "name", Type: table.STRING},
	table.Column{Name: "version", Type: table.INT64},
	table.Column{Name: "rows", Type: table.INT64},
	table.Column{Name: "created", Type: table.TIMESTAMP},
	table.Column{Name: "schema", Type: table.STRING},
)

func entriesTable(entries []catalog.Entry) *table.Table {
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		schema, err := table.NewSchema(e.Columns...)
		checkErr(err)
		rows[i] = table.Row{e.Name, int64(e.Version), int64(e.Rows), e.Created, schema.String()}
	}
	return table.Must("tables", catalogSchema, rows...)
}

func printEntries(entries []catalog.Entry) {
	if tablesFormat.json {
		checkErr(printJSON(os.Stdout, entries))
		return
	}
	checkErr(printTable(os.Stdout, entriesTable(entries), tablesFormat.detect()))
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List stored tables",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := newClient().Tables(context.Background())
		checkErr(err)
		printEntries(entries)
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions [table]",
	Short: "List the versions of a table",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := newClient().Versions(context.Background(), args[0])
		checkErr(err)
		printEntries(entries)
	},
}

var getCmd = &cobra.Command{
	Use:   "get [table]",
	Short: "Print the latest version of a table",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := newClient().Get(context.Background(), args[0])
		checkErr(err)
		if tablesFormat.json {
			checkErr(printJSON(os.Stdout, t))
			return
		}
		checkErr(printTable(os.Stdout, t, tablesFormat.detect()))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [table]",
	Short: "Delete a table and all of its versions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(newClient().Delete(context.Background(), args[0]))
		fmt.Printf("deleted %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(versionsCmd, getCmd, deleteCmd)
	tablesCmd.PersistentFlags().BoolVarP(&tablesFormat.json, "json", "", false, "Output in JSON format")
	tablesCmd.PersistentFlags().BoolVarP(&tablesFormat.expanded, "expanded", "x", false, "Print one field per line")
}
