package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/tsjoin/cli/util"
	"github.com/wkalt/tsjoin/table"
)

var (
	importTypes string
)

var importCmd = &cobra.Command{
	Use:   "import [table] [file or glob]...",
	Short: "Import CSV or JSON files as a new version of a table",
	Long: `Import CSV or JSON files as a new version of a table.

A single file is uploaded as is. When the patterns match several files, they
are read locally, concatenated in path order, and uploaded as one version.
Patterns support ** for recursive matching.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			bailf("import requires a table name and at least one file")
		}
		ctx := context.Background()
		name := args[0]
		paths, err := util.Glob(args[1:]...)
		checkErr(err)
		c := newClient()
		if len(paths) == 1 {
			entry, err := c.Import(ctx, name, paths[0], importTypes)
			checkErr(err)
			fmt.Printf("imported %s version %d (%d rows)\n", entry.Name, entry.Version, entry.Rows)
			return
		}
		hints, err := table.ParseTypeHints(importTypes)
		checkErr(err)
		t, err := util.LoadTables(name, hints, paths...)
		checkErr(err)
		entry, err := c.Put(ctx, name, t)
		checkErr(err)
		fmt.Printf("imported %d files to %s version %d (%d rows)\n", len(paths), entry.Name, entry.Version, entry.Rows)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importTypes, "types", "", "", `CSV column types, e.g. "id:string,time:timestamp"`)
}
