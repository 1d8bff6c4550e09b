package executor

import (
	"errors"
	"fmt"

	"github.com/wkalt/tsjoin/util/httputil"
)

// ErrInvalidArgument is matched by every argument validation failure raised
// when a join is constructed.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError describes a rejected join parameter.
type InvalidArgumentError struct {
	Param  string
	Reason string
	Err    error
}

func newInvalidArgument(param string, format string, args ...any) InvalidArgumentError {
	return InvalidArgumentError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Reason)
}

func (e InvalidArgumentError) Is(target error) bool {
	if target == ErrInvalidArgument {
		return true
	}
	_, ok := target.(InvalidArgumentError)
	return ok
}

func (e InvalidArgumentError) Unwrap() error {
	return e.Err
}

// Detail forwards the detail of the underlying error, if it has one.
func (e InvalidArgumentError) Detail() string {
	var d httputil.Detailer
	if e.Err != nil && errors.As(e.Err, &d) {
		return d.Detail()
	}
	return ""
}

// TableNotFoundError is returned by resolvers when a scanned table does not
// exist.
type TableNotFoundError struct {
	Table string
}

func (e TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s not found", e.Table)
}

func (e TableNotFoundError) Is(target error) bool {
	_, ok := target.(TableNotFoundError)
	return ok
}
