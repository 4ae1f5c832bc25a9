package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/auth"
	"agora/internal/config"
	"agora/internal/db"
	"agora/internal/logging"
	"agora/internal/router"
	"agora/internal/services"
	"agora/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "server",
		Usage: "Run the agora discussion forum",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Create or update the database schema and seed categories",
				Action: func(ctx context.Context, c *cli.Command) error {
					return migrate(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func migrate(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.StoreDriver != config.DriverPostgres {
		return errors.New("migrate needs STORE_DRIVER=postgres")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	return db.Migrate(ctx, conn, logger)
}

// openStore picks the storage backend named by the config.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		s := store.NewMemoryStore()
		if err := s.SeedCategories(ctx, store.DefaultCategories()); err != nil {
			return nil, err
		}
		return s, nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, logger); err != nil {
		return nil, err
	}
	return store.NewGormStore(conn), nil
}

func serve(parent context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// 异步排名服务
	ranking := services.NewRankingService(st, logger)
	go ranking.Run(ctx)

	profiles := services.NewProfileService(st, logger)
	engine, err := router.New(router.Deps{
		Config:   cfg,
		Logger:   logger,
		Verifier: auth.NewVerifier(cfg.JWTSecret),
		Votes:    services.NewVoteService(st, ranking, logger),
		Posts:    services.NewPostService(st, profiles, ranking, logger),
		Comments: services.NewCommentService(st, ranking, logger),
		Profiles: profiles,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("site_url", cfg.SiteURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
