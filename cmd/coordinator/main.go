package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/api"
	"github.com/sirensolutions/kibi-timeline/internal/cache"
	"github.com/sirensolutions/kibi-timeline/internal/config"
	"github.com/sirensolutions/kibi-timeline/internal/logging"
	"github.com/sirensolutions/kibi-timeline/internal/shard"
)

func main() {
	var opts config.CoordinatorOptions
	if err := config.Parse(&opts, os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.Must(opts.LogLevel, opts.LogFormat)
	defer logger.Sync()

	coordOpts := []api.CoordinatorOption{api.WithDefaultLimit(opts.Limit)}
	if opts.Redis != "" {
		rdb, err := cache.NewRedis(context.Background(), opts.Redis)
		if err != nil {
			logger.Warn("redis not available, cache disabled", zap.String("addr", opts.Redis), zap.Error(err))
		} else {
			defer rdb.Close()
			coordOpts = append(coordOpts, api.WithCache(rdb, opts.CacheTTL))
			logger.Info("redis connected", zap.String("addr", opts.Redis))
		}
	}

	registry := shard.NewRegistry(shard.Endpoints(opts.Etcd), logger)
	coord := api.NewCoordinator(registry, logger, coordOpts...)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(opts.Port),
		Handler: coord.Router(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("coordinator ready", zap.Int("port", opts.Port), zap.Bool("cache", len(coordOpts) > 1))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("coordinator stopped")
}
