package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// AppConfig holds the listen addresses of an App.
type AppConfig struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health server
}

// App runs the HTTP router and the gRPC health server.
type App struct {
	cfg    AppConfig
	deps   Deps
	logger *zap.Logger

	server *http.Server
	health *HealthServer
}

// NewApp returns an App serving deps. Nothing listens until Run.
func NewApp(cfg AppConfig, deps Deps, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.Logger = logger
	return &App{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Run blocks until ctx is cancelled or a server fails. Call Shutdown
// afterwards to drain in-flight requests.
func (a *App) Run(ctx context.Context) error {
	a.server = &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           NewRouter(a.deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 2)
	go func() {
		a.logger.Info("starting http server", zap.String("addr", a.cfg.HTTPAddr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("error while starting http server: %w", err)
			return
		}

		errChan <- nil
	}()

	if a.cfg.GRPCAddr != "" {
		a.health = NewHealthServer(a.cfg.GRPCAddr, a.logger.Named("health"))
		a.health.SetServing(true)
		go func() {
			if err := a.health.Run(ctx); err != nil {
				errChan <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown marks the health service not serving and drains both servers.
func (a *App) Shutdown() {
	if a.health != nil {
		a.health.SetServing(false)
	}
	if a.server == nil {
		return
	}

	a.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", zap.Error(err))
	}
	if a.health != nil {
		a.health.Shutdown()
	}
}
