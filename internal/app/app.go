package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-credential-service/internal/config"
	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Engine        *credential.Engine
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	engine *credential.Engine,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Engine:        engine,
	}
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// reported as an error.
func (a *App) ListenAndServe() error {
	a.Logger.Info("server starting", "addr", a.Server.Addr, "credential_store", a.Config.CredentialStore)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP, waits for pending migration notifications, flushes
// telemetry and closes the backing stores, in that order.
func (a *App) Shutdown(ctx context.Context) {
	totalCtx, totalCancel := context.WithTimeout(ctx, a.Config.ShutdownTimeout)
	defer totalCancel()

	if a.Server != nil {
		httpCtx, httpCancel := context.WithTimeout(totalCtx, a.Config.ShutdownHTTPDrainTimeout)
		if err := a.Server.Shutdown(httpCtx); err != nil {
			a.Logger.Error("failed to shutdown http server", "error", err)
		}
		httpCancel()
	}

	if a.Engine != nil {
		done := make(chan struct{})
		go func() {
			a.Engine.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-totalCtx.Done():
			a.Logger.Warn("pending migration notifications abandoned", "error", totalCtx.Err())
		}
	}

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(totalCtx, a.Config.ShutdownObservabilityTimeout)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
		}
		obsCancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
			}
		}
	}
}
