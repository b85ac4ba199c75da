package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/josko3567/oby-server/internal/cache"
	"github.com/josko3567/oby-server/internal/config"
	grpcServer "github.com/josko3567/oby-server/internal/grpc"
	h "github.com/josko3567/oby-server/internal/http"
	"github.com/josko3567/oby-server/internal/logger"
	"github.com/josko3567/oby-server/internal/publisher"
	"github.com/josko3567/oby-server/internal/repository"
	"github.com/josko3567/oby-server/internal/service"
)

func main() {
	config.LoadEnvFile()

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New("oby-server", cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(cfg *config.Server, log *slog.Logger) error {
	repo, err := openRepository(cfg.DB)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.DB.MigrationsPath); err != nil {
		return err
	}
	log.Info("migrations completed", "driver", cfg.DB.Driver)

	offerCache, closeCache := newOfferCache(cfg, log)
	defer closeCache()
	catalogSvc := service.NewCatalogService(repo, offerCache, log)
	orderSvc := service.NewOrderService(repo, catalogSvc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Seed {
		if _, err := catalogSvc.SeedDemoData(ctx); err != nil {
			return err
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, log, cfg.OrdersTopic, cfg.KafkaBrokers...)
		pollerDone := make(chan struct{})
		go func() {
			defer close(pollerDone)
			poller.Run(ctx)
		}()
		defer func() {
			stop()
			<-pollerDone
			if err := poller.Close(); err != nil {
				log.Error("closing kafka writer", "error", err)
			}
		}()
		log.Info("outbox poller started", "brokers", cfg.KafkaBrokers, "topic", cfg.OrdersTopic)
	}

	grpcSrv := grpcServer.NewServer(repo, log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc server error", "error", err)
		}
	}()
	go grpcSrv.WatchStore(ctx, 10*time.Second)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(h.RouterConfig{
			Catalog:        catalogSvc,
			Orders:         orderSvc,
			Health:         repo,
			RequestTimeout: cfg.RequestTimeout,
			AllowedOrigins: cfg.CORSOrigins,
			AccessLog:      logger.ParseLevel(cfg.LogLevel) <= slog.LevelDebug,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		grpcSrv.GracefulStop()
		return err
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	grpcSrv.GracefulStop()
	return srv.Shutdown(shutdownCtx)
}

func openRepository(db config.Database) (*repository.Repository, error) {
	switch db.Driver {
	case config.DriverPostgres:
		return repository.NewPostgresRepository(&repository.Credentials{
			Host:              db.Host,
			Port:              db.Port,
			User:              db.User,
			Password:          db.Password,
			DBName:            db.Name,
			MigrationsDirPath: db.MigrationsPath,
		})
	default:
		if err := os.MkdirAll(filepath.Dir(db.Path), 0o755); err != nil {
			return nil, err
		}
		return repository.NewSQLiteRepository(db.Path)
	}
}

func newOfferCache(cfg *config.Server, log *slog.Logger) (cache.OfferCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NopCache{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	log.Info("offer cache enabled", "redis", cfg.RedisAddr)
	return cache.NewRedisCache(client), func() {
		if err := client.Close(); err != nil {
			log.Error("closing redis client", "error", err)
		}
	}
}
