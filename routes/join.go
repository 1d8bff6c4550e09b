package routes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/wkalt/tsjoin/executor"
	"github.com/wkalt/tsjoin/tablemgr"
	"github.com/wkalt/tsjoin/util"
	"github.com/wkalt/tsjoin/util/httputil"
	"github.com/wkalt/tsjoin/util/log"
)

// JoinRequest is a structured as-of join between two stored tables. On and By
// name a column present on both sides; LeftOn/RightOn and LeftBy/RightBy
// override them per side.
type JoinRequest struct {
	Left              string `json:"left"`
	Right             string `json:"right"`
	On                string `json:"on"`
	LeftOn            string `json:"leftOn"`
	RightOn           string `json:"rightOn"`
	By                string `json:"by"`
	LeftBy            string `json:"leftBy"`
	RightBy           string `json:"rightBy"`
	Tolerance         string `json:"tolerance"`
	AllowExactMatches *bool  `json:"allowExactMatches"`
	JoinType          string `json:"joinType"`
	Shards            int    `json:"shards"`
	Explain           bool   `json:"explain"`
}

func (req JoinRequest) validate() error {
	if req.Left == "" {
		return errors.New("missing left")
	}
	if req.Right == "" {
		return errors.New("missing right")
	}
	if req.Shards < 0 {
		return errors.New("shards must be non-negative")
	}
	if req.Shards > executor.MaxShards {
		return fmt.Errorf("shards must not exceed %d", executor.MaxShards)
	}
	return nil
}

// AsofOptions translates the request into join options.
func (req JoinRequest) AsofOptions() ([]executor.AsofOption, error) {
	leftOn := util.When(req.LeftOn != "", req.LeftOn, req.On)
	rightOn := util.When(req.RightOn != "", req.RightOn, req.On)
	leftBy := util.When(req.LeftBy != "", req.LeftBy, req.By)
	rightBy := util.When(req.RightBy != "", req.RightBy, req.By)
	joinType, err := executor.ParseJoinType(req.JoinType)
	if err != nil {
		return nil, err
	}
	opts := []executor.AsofOption{
		executor.On(leftOn, rightOn),
		executor.WithJoinType(joinType),
	}
	if leftBy != "" || rightBy != "" {
		opts = append(opts, executor.By(leftBy, rightBy))
	}
	if req.AllowExactMatches != nil {
		opts = append(opts, executor.WithAllowExactMatches(*req.AllowExactMatches))
	}
	if req.Tolerance != "" {
		tolerance, err := util.ParseDuration(req.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("invalid tolerance: %w", err)
		}
		opts = append(opts, executor.WithTolerance(tolerance))
	}
	return opts, nil
}

func newJoinHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer r.Body.Close()
		req := JoinRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(ctx, w, "error decoding request: %s", err)
			return
		}
		log.Infow(ctx, "join request",
			"left", req.Left,
			"right", req.Right,
			"shards", req.Shards,
		)
		if err := req.validate(); err != nil {
			httputil.BadRequest(ctx, w, "invalid request: %s", err)
			return
		}
		opts, err := req.AsofOptions()
		if err != nil {
			httputil.BadRequest(ctx, w, "invalid request: %w", err)
			return
		}
		ctx = util.WithContext(ctx, "join")
		result, err := tmgr.Join(ctx, req.Left, req.Right, req.Shards, opts...)
		if err != nil {
			writeError(ctx, w, err, false)
			return
		}
		resp := QueryResponse{Result: result}
		if req.Explain {
			resp.Stats = util.FromContext(ctx)
		}
		httputil.WriteJSON(ctx, w, resp)
	}
}
