package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netcollect/backend/internal/interfaces/http/handler"
	"github.com/netcollect/backend/internal/interfaces/http/middleware"
	"github.com/netcollect/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Engine builds the gin engine serving the collection API
func (a *App) Engine() (*gin.Engine, error) {
	cfg := a.Config
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sqlDB, err := a.DB.DB.DB()
	if err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	return router.NewEngine(router.Config{
		ServiceName: cfg.App.Name,
		Logger:      a.Logger,
		CORS:        cors,
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			JWTService: a.JWT,
			Logger:     a.Logger,
		},
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter:          a.meter.Meter(instrumentationName),
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		System:     handler.NewSystemHandler(cfg.App.Name, sqlDB),
		Collection: handler.NewCollectionHandler(a.Ledger, a.Batches, a.Reports),
		Admin:      handler.NewAdminHandler(a.Batches, a.Reports, a.Roster),
	})
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	engine, err := a.Engine()
	if err != nil {
		return err
	}

	cfg := a.Config.HTTP
	srv := &http.Server{
		Addr:           ":" + a.Config.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Logger.Info("Server exited gracefully")
	return nil
}
