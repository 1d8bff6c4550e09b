package routes

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/wkalt/tsjoin/tablemgr"
	"github.com/wkalt/tsjoin/util/mw"
)

/*
The routes package exposes the table manager over HTTP. Tables are uploaded as
CSV or JSON, listed, read back and dropped under /tables; /query runs a query
in the query language and /join runs a structured as-of join.
*/

////////////////////////////////////////////////////////////////////////////////

// MakeRoutes builds the service's HTTP handler.
func MakeRoutes(
	tmgr *tablemgr.TableManager,
	allowedOrigins []string,
	sharedKey string,
) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/tables", newListTablesHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/tables/{name}", newPutTableHandler(tmgr)).Methods(http.MethodPost)
	r.HandleFunc("/tables/{name}", newGetTableHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/tables/{name}", newDeleteTableHandler(tmgr)).Methods(http.MethodDelete)
	r.HandleFunc("/tables/{name}/versions", newVersionsHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/query", newQueryHandler(tmgr)).Methods(http.MethodPost)
	r.HandleFunc("/join", newJoinHandler(tmgr)).Methods(http.MethodPost)

	r.Use(mw.WithRequestID)
	r.Use(mw.WithCORSAllowedOrigins(allowedOrigins))
	r.Use(mw.WithSharedKeyAuth(sharedKey))
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
}
