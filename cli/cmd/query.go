package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var (
	queryFormat  outputFormat
	queryExplain bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [single-quoted string]",
	Short: "Execute a query",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			bailf("query requires exactly one single-quoted query string")
		}
		resp, err := newClient().Query(context.Background(), args[0], queryExplain)
		checkErr(err)
		checkErr(printResult(os.Stdout, resp, queryFormat.detect()))
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVarP(&queryFormat.json, "json", "", false, "Output in JSON format")
	queryCmd.Flags().BoolVarP(&queryFormat.expanded, "expanded", "x", false, "Print one field per line")
	queryCmd.Flags().BoolVarP(&queryExplain, "explain", "", false, "Include the plan and execution statistics")
}
