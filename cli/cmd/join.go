package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/tsjoin/cli/util"
	"github.com/wkalt/tsjoin/executor"
	"github.com/wkalt/tsjoin/routes"
	"github.com/wkalt/tsjoin/table"
	tsutil "github.com/wkalt/tsjoin/util"
)

var (
	joinLeft    []string
	joinRight   []string
	joinRemote  bool
	joinStrict  bool
	joinInner   bool
	joinTypes   string
	joinRequest routes.JoinRequest
	joinFormat  outputFormat
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "As-of join two tables",
	Long: `As-of join two tables.

Each left row is matched with the latest right row at or before its time,
within the same group when --by is given. By default --left and --right are
CSV or JSON files (globs are concatenated) and the join runs locally. With
--remote they name tables stored on the server.`,
	Example: `  tsjoin join --left 'quotes/**/*.csv' --right trades.csv --on time --by sym --tolerance 2s
  tsjoin join --remote --left quotes --right trades --on time --inner`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(joinLeft) == 0 || len(joinRight) == 0 {
			bailf("--left and --right are required")
		}
		ctx := context.Background()
		req := joinRequest
		req.JoinType = tsutil.When(joinInner, "inner", "left")
		if joinStrict {
			req.AllowExactMatches = tsutil.Pointer(false)
		}
		var resp *routes.QueryResponse
		var err error
		if joinRemote {
			if len(joinLeft) > 1 || len(joinRight) > 1 {
				bailf("--remote joins take one table per side")
			}
			req.Left, req.Right = joinLeft[0], joinRight[0]
			resp, err = newClient().Join(ctx, req)
		} else {
			resp, err = joinLocal(ctx, req)
		}
		checkErr(err)
		checkErr(printResult(os.Stdout, resp, joinFormat.detect()))
	},
}

func joinLocal(ctx context.Context, req routes.JoinRequest) (*routes.QueryResponse, error) {
	hints, err := table.ParseTypeHints(joinTypes)
	if err != nil {
		return nil, err
	}
	left, err := util.LoadTables("left", hints, joinLeft...)
	if err != nil {
		return nil, err
	}
	right, err := util.LoadTables("right", hints, joinRight...)
	if err != nil {
		return nil, err
	}
	opts, err := req.AsofOptions()
	if err != nil {
		return nil, err
	}
	ctx = tsutil.WithContext(ctx, "join")
	result, err := executor.ShardedAsofJoin(ctx, left, right, req.Shards, opts...)
	if err != nil {
		return nil, err
	}
	resp := &routes.QueryResponse{Result: result}
	if req.Explain {
		resp.Stats = tsutil.FromContext(ctx)
	}
	return resp, nil
}

func init() {
	rootCmd.AddCommand(joinCmd)
	f := joinCmd.Flags()
	f.StringSliceVarP(&joinLeft, "left", "", nil, "Left input files or globs, or a table name with --remote")
	f.StringSliceVarP(&joinRight, "right", "", nil, "Right input files or globs, or a table name with --remote")
	f.BoolVarP(&joinRemote, "remote", "", false, "Join tables stored on the server")
	f.StringVarP(&joinRequest.On, "on", "", "time", "Time column on both sides")
	f.StringVarP(&joinRequest.LeftOn, "left-on", "", "", "Left time column")
	f.StringVarP(&joinRequest.RightOn, "right-on", "", "", "Right time column")
	f.StringVarP(&joinRequest.By, "by", "", "", "Group column on both sides")
	f.StringVarP(&joinRequest.LeftBy, "left-by", "", "", "Left group column")
	f.StringVarP(&joinRequest.RightBy, "right-by", "", "", "Right group column")
	f.StringVarP(&joinRequest.Tolerance, "tolerance", "", "", `Maximum time gap, e.g. "2s" or "1d"`)
	f.IntVarP(&joinRequest.Shards, "shards", "", 0, "Partition grouped joins across this many shards")
	f.BoolVarP(&joinRequest.Explain, "explain", "", false, "Print execution statistics")
	f.BoolVarP(&joinStrict, "strict", "", false, "Only match right rows strictly before the left time")
	f.BoolVarP(&joinInner, "inner", "", false, "Drop left rows without a match")
	f.StringVarP(&joinTypes, "types", "", "", `CSV column types, e.g. "sym:string"`)
	f.BoolVarP(&joinFormat.json, "json", "", false, "Output in JSON format")
	f.BoolVarP(&joinFormat.expanded, "expanded", "x", false, "Print one field per line")
}
