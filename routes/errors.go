package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/alecthomas/participle/v2"
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/executor"
	"github.com/wkalt/tsjoin/plan"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/tablemgr"
	"github.com/wkalt/tsjoin/util/httputil"
)

func isNotFound(err error) bool {
	return errors.Is(err, catalog.TableNotFoundError{}) || errors.Is(err, executor.TableNotFoundError{})
}

func isClientError(err error) bool {
	var parseErr participle.Error
	var valueErr table.ValueError
	switch {
	case errors.As(err, &parseErr),
		errors.As(err, &valueErr),
		errors.Is(err, executor.ErrInvalidArgument),
		errors.Is(err, plan.BadPlanError{}),
		errors.Is(err, table.FieldNotFoundError{}),
		errors.Is(err, tablemgr.ErrInvalidTable),
		isNotFound(err):
		return true
	}
	return false
}

// writeError responds with 400 for errors caused by the request, and 500 for
// anything else. Missing tables are 404 when the table is the resource being
// addressed, and 400 when it is named inside a query or join.
func writeError(ctx context.Context, w http.ResponseWriter, err error, addressed bool) {
	switch {
	case addressed && isNotFound(err):
		httputil.NotFound(ctx, w, "%w", err)
	case isClientError(err):
		httputil.BadRequest(ctx, w, "%w", err)
	default:
		httputil.InternalServerError(ctx, w, "%s", err)
	}
}
