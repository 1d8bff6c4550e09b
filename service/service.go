package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/routes"
	"github.com/wkalt/tsjoin/storage"
	"github.com/wkalt/tsjoin/tablemgr"
	"github.com/wkalt/tsjoin/util/log"
)

/*
This file is the main entrypoint for server startup.
*/

////////////////////////////////////////////////////////////////////////////////

const shutdownGracePeriod = 10 * time.Second

// Service is the tsjoin HTTP service.
type Service struct{}

// NewService creates a new service.
func NewService() *Service {
	return &Service{}
}

func readOpts(opts ...Option) (*Options, error) {
	options := Options{
		Port:         8089,
		LogLevel:     slog.LevelInfo,
		DataDir:      "data",
		DatabasePath: "tsjoin.db",
		CacheRows:    1_000_000,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8080",
		},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", options.Port)
	}
	if options.StorageProvider == nil && options.DataDir == "" {
		return nil, errors.New("either a storage provider or a data directory is required")
	}
	return &options, nil
}

// Build opens the catalog and storage and returns the service's handler. The
// returned function closes the catalog database.
func Build(ctx context.Context, opts *Options) (http.Handler, func() error, error) {
	store := opts.StorageProvider
	if store == nil {
		dirstore, err := storage.NewDirectoryStore(filepath.Join(opts.DataDir, "objects"))
		if err != nil {
			return nil, nil, err
		}
		store = dirstore
	}
	dbpath := opts.DatabasePath + "?_journal=WAL&mode=rwc"
	log.Infof(ctx, "Opening database at %s", dbpath)
	db, err := sql.Open("sqlite3", dbpath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		return nil, nil, errors.Join(
			fmt.Errorf("failed to ping database at %s: %w", dbpath, err), db.Close())
	}
	cat, err := catalog.NewSQLCatalog(db)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to open catalog: %w", err), db.Close())
	}
	tmgr := tablemgr.NewTableManager(store, cat, tablemgr.WithCacheRows(opts.CacheRows))
	log.Infof(ctx, "Building routes with allowed origins %+v", opts.AllowedOrigins)
	log.Infow(ctx, "Storage configured", "storage", store, "cache_rows", opts.CacheRows)
	return routes.MakeRoutes(tmgr, opts.AllowedOrigins, opts.SharedKey), db.Close, nil
}

func startPprof(ctx context.Context, addr string) {
	r := mux.NewRouter()
	r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	log.Infof(ctx, "Starting pprof server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Errorf(ctx, "failed to start pprof server: %s", err)
	}
}

// Start starts the service and blocks until it is stopped by SIGINT or
// SIGTERM. A second SIGINT during shutdown forces an exit.
func (s *Service) Start(ctx context.Context, options ...Option) error {
	opts, err := readOpts(options...)
	if err != nil {
		return fmt.Errorf("failed to read options: %w", err)
	}
	slog.SetLogLoggerLevel(opts.LogLevel)
	log.Debugf(ctx, "Debug logging enabled")

	handler, closeDB, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDB(); err != nil {
			log.Errorf(ctx, "failed to close database: %s", err)
		}
	}()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigint := make(chan os.Signal, 1)
	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	signal.Notify(sigterm, syscall.SIGTERM)

	startErr := make(chan error, 1)
	go func() {
		log.Infow(ctx, "Starting server", "port", opts.Port, "cache_rows", opts.CacheRows)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
	}()
	if opts.PprofAddr != "" {
		go startPprof(ctx, opts.PprofAddr)
	}

	select {
	case <-sigint:
		log.Infof(ctx, "Received SIGINT")
	case <-sigterm:
		log.Infof(ctx, "Received SIGTERM")
	case <-ctx.Done():
		log.Infof(ctx, "Context canceled")
	case err := <-startErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Infof(ctx, "Allowing %s for existing connections to close", shutdownGracePeriod)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
	defer cancel()

	errs := make(chan error, 1)
	success := make(chan bool, 1)
	go func() {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs <- err
		} else {
			log.Infof(ctx, "Server stopped")
			success <- true
		}
	}()

	select {
	case <-sigint:
		return errors.New("forceful shutdown on second interrupt")
	case err := <-errs:
		return fmt.Errorf("server shutdown failed: %w", err)
	case <-success:
		return nil
	}
}
