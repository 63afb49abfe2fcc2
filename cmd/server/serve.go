package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/minicart/internal/adapter/catalog"
	"github.com/rl1809/minicart/internal/adapter/handler"
	"github.com/rl1809/minicart/internal/adapter/storage"
	"github.com/rl1809/minicart/internal/config"
	"github.com/rl1809/minicart/internal/core/service"
	"github.com/rl1809/minicart/internal/logger"
	"github.com/rl1809/minicart/internal/port"
)

const (
	shutdownTimeout = 5 * time.Second
	publishTimeout  = time.Second
)

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPCAddr = grpcAddr
	}

	log, err := logger.New(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog source
	var source port.ProductCatalog
	switch cfg.CatalogSource {
	case config.CatalogSourceMySQL:
		db, err := openMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("connected to mysql")
		source = storage.NewMySQLAdapter(db)
	default:
		source = catalog.NewHTTPClient(cfg.CatalogBaseURL, cfg.CatalogTimeout)
		log.Info("using catalog api", zap.String("base_url", cfg.CatalogBaseURL))
	}

	sessions := service.NewSessions(log)

	// Redis is optional: catalog cache and snapshot fan-out
	var cache port.CatalogCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer rdb.Close()
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.CatalogCacheTTL)
		cache = redisAdapter
		service.FanOut(sessions, redisAdapter, publishTimeout, log)
	}

	catalogService := service.NewCatalogService(source, cache, log)

	grpcServer := grpc.NewServer()
	handler.RegisterCartServiceServer(grpcServer, handler.NewGRPCHandler(sessions, catalogService, log))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(sessions, catalogService, log).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		g.Go(func() error {
			log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
			return grpcServer.Serve(lis)
		})
	}

	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown failed", zap.Error(err))
		}
		log.Info("HTTP server stopped")

		// Watch streams only end with their clients, so Stop rather than GracefulStop
		grpcServer.Stop()
		log.Info("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("connections closed", zap.Int("open_sessions", sessions.Len()))
	return nil
}
