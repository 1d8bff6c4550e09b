package util

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/wkalt/tsjoin/util/httputil"
)

// APIError is an error response returned by the server.
type APIError struct {
	Status int
	err    string
	detail string
}

func (e APIError) Error() string {
	return e.err
}

// Detail returns the server's detail message, if any.
func (e APIError) Detail() string {
	return e.detail
}

// NewAPIError constructs an APIError.
func NewAPIError(status int, err string, detail string) APIError {
	return APIError{
		Status: status,
		err:    err,
		detail: detail,
	}
}

// CheckResponse returns an APIError for non-200 responses.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	response := httputil.ErrorResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return NewAPIError(resp.StatusCode, response.Error, response.Detail)
}
