package routes

import (
	"net/http/httptest"
	"testing"

	"github.com/wkalt/tsjoin/tablemgr"
)

// MakeTestRoutes starts a test server over tmgr, and returns its URL and a
// function that stops it.
func MakeTestRoutes(t *testing.T, tmgr *tablemgr.TableManager, sharedKey string) (string, func()) {
	t.Helper()
	handler := MakeRoutes(tmgr, []string{"http://localhost:5173"}, sharedKey)
	srv := httptest.NewServer(handler)
	return srv.URL, srv.Close
}
