package routes

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wkalt/tsjoin/table"
	"github.com/wkalt/tsjoin/tablemgr"
	"github.com/wkalt/tsjoin/util/httputil"
	"github.com/wkalt/tsjoin/util/log"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeJSON = "application/json"
)

func newPutTableHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer r.Body.Close()
		name := mux.Vars(r)["name"]
		mediatype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		ctx = log.AddTags(ctx, "table", name, "content_type", mediatype)
		log.Infof(ctx, "Importing table")
		switch mediatype {
		case contentTypeCSV:
			hints, err := table.ParseTypeHints(r.URL.Query().Get("types"))
			if err != nil {
				httputil.BadRequest(ctx, w, "invalid types parameter: %s", err)
				return
			}
			entry, err := tmgr.ImportCSV(ctx, name, r.Body, hints)
			if err != nil {
				writeError(ctx, w, err, false)
				return
			}
			httputil.WriteJSON(ctx, w, entry)
		case contentTypeJSON, "":
			data, err := io.ReadAll(r.Body)
			if err != nil {
				httputil.BadRequest(ctx, w, "error reading request: %s", err)
				return
			}
			entry, err := tmgr.ImportJSON(ctx, name, data)
			if err != nil {
				writeError(ctx, w, err, false)
				return
			}
			httputil.WriteJSON(ctx, w, entry)
		default:
			httputil.BadRequest(ctx, w, "unsupported content type %q", mediatype)
		}
	}
}

func newGetTableHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["name"]
		var (
			t   *table.Table
			err error
		)
		if v := r.URL.Query().Get("version"); v != "" {
			version, perr := strconv.ParseUint(v, 10, 64)
			if perr != nil {
				httputil.BadRequest(ctx, w, "invalid version %q", v)
				return
			}
			t, err = tmgr.GetVersion(ctx, name, version)
		} else {
			t, err = tmgr.Get(ctx, name)
		}
		if err != nil {
			writeError(ctx, w, err, true)
			return
		}
		if r.Header.Get("Accept") == contentTypeCSV {
			w.Header().Set("Content-Type", contentTypeCSV)
			if err := table.WriteCSV(w, t); err != nil {
				log.Errorw(ctx, "error writing response", "error", err)
			}
			return
		}
		httputil.WriteJSON(ctx, w, t)
	}
}

func newListTablesHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entries, err := tmgr.List(ctx)
		if err != nil {
			writeError(ctx, w, err, false)
			return
		}
		httputil.WriteJSON(ctx, w, entries)
	}
}

func newVersionsHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entries, err := tmgr.Versions(ctx, mux.Vars(r)["name"])
		if err != nil {
			writeError(ctx, w, err, true)
			return
		}
		httputil.WriteJSON(ctx, w, entries)
	}
}

// DeleteResponse is the response body of the table deletion endpoint.
type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

func newDeleteTableHandler(tmgr *tablemgr.TableManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["name"]
		ctx = log.AddTags(ctx, "table", name)
		if err := tmgr.Delete(ctx, name); err != nil {
			writeError(ctx, w, err, true)
			return
		}
		httputil.WriteJSON(ctx, w, DeleteResponse{Deleted: name})
	}
}
