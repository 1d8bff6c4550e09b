package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/wkalt/tsjoin/executor"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/tablemgr"
	"github.com/wkalt/tsjoin/util"
	"github.com/wkalt/tsjoin/util/httputil"
	"github.com/wkalt/tsjoin/util/log"
)

/*
The query route receives query strings in the query language, compiles them
into an execution tree against the stored tables, and executes the query. With
explain set, the response also carries the execution tree and the statistics
each node recorded.
*/

////////////////////////////////////////////////////////////////////////////////

// QueryRequest represents a query request.
type QueryRequest struct {
	Query   string `json:"query"`
	Explain bool   `json:"explain"`
}

func (req QueryRequest) validate() error {
	if req.Query == "" {
		return errors.New("missing query")
	}
	if !strings.HasSuffix(strings.TrimSpace(req.Query), ";") {
		return errors.New("queries must be terminated with a semicolon")
	}
	return nil
}

// QueryResponse is the response body of the query and join endpoints.
type QueryResponse struct {
	Result *table.Table  `json:"result"`
	Plan   string        `json:"plan,omitempty"`
	Stats  *util.Context `json:"stats,omitempty"`
}

func newQueryHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer r.Body.Close()
		req := QueryRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(ctx, w, "error decoding request: %s", err)
			return
		}
		log.Infow(ctx, "query request", "query", req.Query, "explain", req.Explain)
		if err := req.validate(); err != nil {
			httputil.BadRequest(ctx, w, "invalid request: %s", err)
			return
		}
		ctx = util.WithContext(ctx, "query")
		node, err := tmgr.Compile(ctx, req.Query)
		if err != nil {
			writeError(ctx, w, err, false)
			return
		}
		plan := executor.Explain(node)
		result, err := executor.Collect(ctx, "result", node)
		if err != nil {
			writeError(ctx, w, err, false)
			return
		}
		resp := QueryResponse{Result: result}
		if req.Explain {
			resp.Plan = plan
			resp.Stats = util.FromContext(ctx)
		}
		httputil.WriteJSON(ctx, w, resp)
	}
}
