package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/app"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/metrics"
	sqlstore "github.com/iyhunko/product-catalog/internal/repository/sql"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.Catalog.UserAgent(), conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if app.NeedsDB(conf) {
		db, err = sqlstore.StartDB(ctx, conf.Database)
		handleErr("starting database", err)
		defer db.Close()
	}

	publisher, err := app.NewPublisher(ctx, conf)
	handleErr("creating notification publisher", err)

	catalog := app.NewCatalog(app.Options{
		Stores:    app.NewStores(conf, db),
		Remote:    app.NewRemote(conf),
		Publisher: publisher,
	})
	slog.Info("catalog ready",
		slog.Any("local", catalog.Kinds()),
		slog.Any("remote", conf.Catalog.RemoteKinds()),
		slog.Bool("products", conf.Catalog.ServesProducts()),
	)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           app.NewRouter(conf, catalog),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpErrs := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrs <- err
		}
	}()

	metricsServer := metrics.NewServer(conf.MetricsServer.Port)
	metricsErrs := metrics.StartMetricsServer(metricsServer)

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
	case err := <-httpErrs:
		slog.Error("HTTP server failed", slog.Any("err", err))
	case err := <-metricsErrs:
		if err != nil {
			slog.Error("metrics server failed", slog.Any("err", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to stop HTTP server", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to stop metrics server", slog.Any("err", err))
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
