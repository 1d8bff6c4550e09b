package service

import (
	"log/slog"

	"github.com/wkalt/tsjoin/storage"
)

// Option is a functional option for the service.
type Option func(*Options)

// Options contains options for the service.
type Options struct {
	StorageProvider storage.Provider
	DataDir         string
	DatabasePath    string
	Port            int
	LogLevel        slog.Level
	CacheRows       int64
	AllowedOrigins  []string
	SharedKey       string
	PprofAddr       string
}

// WithStorageProvider sets the storage provider. If unset, tables are stored
// under the data directory.
func WithStorageProvider(provider storage.Provider) Option {
	return func(opts *Options) {
		opts.StorageProvider = provider
	}
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(opts *Options) {
		opts.DataDir = dir
	}
}

// WithDatabasePath sets the path of the sqlite catalog database.
func WithDatabasePath(path string) Option {
	return func(opts *Options) {
		opts.DatabasePath = path
	}
}

// WithPort sets the port to listen on.
func WithPort(port int) Option {
	return func(opts *Options) {
		opts.Port = port
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level slog.Level) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithCacheRows sets the capacity of the table cache in rows.
func WithCacheRows(rows int64) Option {
	return func(opts *Options) {
		opts.CacheRows = rows
	}
}

// WithAllowedOrigins sets the origins allowed by CORS.
func WithAllowedOrigins(origins []string) Option {
	return func(opts *Options) {
		opts.AllowedOrigins = origins
	}
}

// WithSharedKey sets a bearer token required on every request. An empty key
// disables authentication.
func WithSharedKey(key string) Option {
	return func(opts *Options) {
		opts.SharedKey = key
	}
}

// WithPprofAddr serves pprof on the given address. An empty address disables
// it.
func WithPprofAddr(addr string) Option {
	return func(opts *Options) {
		opts.PprofAddr = addr
	}
}
