// Command sapfluxd is the transactional sap-flux ingestion service: parse
// flags/env, build a logger, load config, wire the database, object store,
// and orchestrator together, and serve HTTP until signaled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rileyleff/sapfluxd/internal/db"
	"github.com/rileyleff/sapfluxd/internal/httpapi"
	"github.com/rileyleff/sapfluxd/internal/logging"
	"github.com/rileyleff/sapfluxd/internal/objstore"
	"github.com/rileyleff/sapfluxd/internal/svcconfig"
	"github.com/rileyleff/sapfluxd/internal/txn"
)

var fMigrateOnStart = flag.Bool("migrate", false, "apply the embedded schema on startup before serving")

func main() {
	flag.Parse()

	lgr := logging.New(os.Stdout)
	defer lgr.Close()

	cfg, err := svcconfig.Load()
	if err != nil {
		lgr.FatalCode(1, "configuration error", logging.KVErr(err))
		return
	}
	if err := lgr.SetLevelString(cfg.LogLevel); err != nil {
		lgr.Warn("invalid log level, keeping default", logging.KVErr(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		lgr.FatalCode(1, "database connection failed", logging.KVErr(err))
		return
	}
	defer store.Close()

	if *fMigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			lgr.FatalCode(1, "schema migration failed", logging.KVErr(err))
			return
		}
		lgr.Info("schema migrated")
	}

	blobs, err := objstore.New(objstore.Config{
		AccessKeyID:     cfg.ObjectStoreAccessKey,
		SecretAccessKey: cfg.ObjectStoreSecretKey,
		Region:          cfg.ObjectStoreRegion,
		Endpoint:        cfg.ObjectStoreEndpoint,
		Bucket:          cfg.ObjectStoreBucket,
		ForcePathStyle:  cfg.ObjectStoreForcePath,
	})
	if err != nil {
		lgr.FatalCode(1, "object store configuration failed", logging.KVErr(err))
		return
	}

	orchestrator := txn.New(store, blobs, lgr)
	api := httpapi.NewServer(orchestrator, store, blobs, lgr)

	srv := &http.Server{
		Addr:    cfg.HTTPBindAddress,
		Handler: api.Routes(),
	}

	serveErr := make(chan error, 1)
	go func() {
		lgr.Info("listening", logging.KV("addr", cfg.HTTPBindAddress))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lgr.Info("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("server exited unexpectedly", logging.KVErr(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("graceful shutdown failed", logging.KVErr(err))
		fmt.Fprintln(os.Stderr, "forced exit:", err)
		os.Exit(1)
	}
}
