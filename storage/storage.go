package storage

import (
	"context"
	"errors"
)

/*
Storage providers hold the serialized tables managed by the table manager.
Objects are written once under a fresh identifier and never modified; a new
version of a table is a new object.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object is not found.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface implemented by object storage backends.
type Provider interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	String() string
}
