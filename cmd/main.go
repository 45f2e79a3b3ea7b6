package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/Dosada05/league-system/config"
	"github.com/Dosada05/league-system/db"
	"github.com/Dosada05/league-system/handlers"
	"github.com/Dosada05/league-system/metrics"
	"github.com/Dosada05/league-system/middleware"
	"github.com/Dosada05/league-system/repositories"
	api "github.com/Dosada05/league-system/routes"
	"github.com/Dosada05/league-system/services"
	"github.com/Dosada05/league-system/storage"
)

const (
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	// Настройка логгера
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	app := &cli.App{
		Name:  "league",
		Usage: "round-robin league server",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(logger, level)
					if err != nil {
						return err
					}
					return serve(c.Context, cfg, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "create the PostgreSQL schema",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(logger, level)
					if err != nil {
						return err
					}
					return migrate(c.Context, cfg, logger)
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func loadConfig(logger *slog.Logger, level *slog.LevelVar) (*config.Config, error) {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level.Set(cfg.SlogLevel())
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort), slog.String("store", cfg.StoreDriver))
	return cfg, nil
}

func migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		logger.Info("bolt store needs no migration", slog.String("path", cfg.BoltPath))
		return nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err = db.Migrate(ctx, dbConn); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("schema applied")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		store, err := repositories.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		logger.Info("bolt store opened", slog.String("path", cfg.BoltPath))
		return store, nil
	default:
		dbConn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err = db.Migrate(ctx, dbConn); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		logger.Info("database connection established")
		return repositories.NewPostgresStore(dbConn), nil
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		} else {
			logger.Info("store closed")
		}
	}()

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 is not configured, logo uploads are disabled")
	}

	m := metrics.New()

	// Инициализация сервисов
	authService := services.NewAuthService(store)
	tournamentService := services.NewTournamentService(store, uploader, m, logger)

	pages, err := handlers.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	sessions := middleware.NewSessionManager(cfg.JWTSecretKey, cfg.SessionTTL)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Deps{
		Logger:      logger,
		Metrics:     m,
		Sessions:    sessions,
		AuthLimiter: middleware.NewIPRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst),
		CORSOrigins: cfg.CORSAllowedOrigins,
		Auth:        handlers.NewAuthHandler(authService, sessions, pages, logger),
		Dashboard:   handlers.NewDashboardHandler(tournamentService, pages, logger),
		Tournament:  handlers.NewTournamentHandler(tournamentService, pages, uploader != nil, logger),
	})
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
