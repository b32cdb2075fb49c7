package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tolarian/cardtable-backend/internal/config"
	"github.com/tolarian/cardtable-backend/internal/httpapi"
	"github.com/tolarian/cardtable-backend/internal/hub"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.DevLog)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Options{
		GraceWindow:   cfg.GraceWindow,
		SweepInterval: cfg.SweepInterval,
		CodeAttempts:  cfg.CodeAttempts,
	}, logger)

	// Build the router *with* the hub injected.
	handler := httpapi.SetupRoutes(h, logger, cfg.RateLimitPerMinute)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No blanket write timeout: /ws connections are long-lived.
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
