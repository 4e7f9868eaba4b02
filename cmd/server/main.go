package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"splat-tracker/internal/config"
	"splat-tracker/internal/constants"
	fxmodules "splat-tracker/internal/fx"
	"splat-tracker/internal/middleware"
	"splat-tracker/internal/server"
	"splat-tracker/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runSyncLoop),
	).Run()
}

// runSyncLoop periodically pulls fresh results for the configured accounts.
// Inserts land on the tracked write path, so open live queries update on
// their own.
func runSyncLoop(
	lc fx.Lifecycle,
	cfg *config.Config,
	ingest *service.IngestService,
	logger zerolog.Logger,
) {
	if cfg.SyncBaseURL == "" || len(cfg.SyncAccounts) == 0 {
		logger.Info().Msg("background sync disabled")
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(cfg.SyncInterval)
				defer ticker.Stop()
				for {
					for _, accountID := range cfg.SyncAccounts {
						if _, err := ingest.Sync(loopCtx, accountID); err != nil {
							logger.Warn().Err(err).Str("account_id", accountID).Msg("background sync failed")
						}
					}
					select {
					case <-loopCtx.Done():
						return
					case <-ticker.C:
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(srv.Router()))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", httpSrv.Addr).Msg("server starting")
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
