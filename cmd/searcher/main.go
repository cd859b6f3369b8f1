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
	"github.com/sirensolutions/kibi-timeline/internal/config"
	"github.com/sirensolutions/kibi-timeline/internal/index"
	"github.com/sirensolutions/kibi-timeline/internal/logging"
	"github.com/sirensolutions/kibi-timeline/internal/shard"
	"github.com/sirensolutions/kibi-timeline/internal/timeline"
)

func main() {
	var opts config.SearcherOptions
	if err := config.Parse(&opts, os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.Must(opts.LogLevel, opts.LogFormat)
	defer logger.Sync()

	groups, err := config.LoadTimeline(opts.Groups)
	if err != nil {
		logger.Fatal("load groups", zap.String("path", opts.Groups), zap.Error(err))
	}

	indexPath := opts.Index
	if opts.ShardID >= 0 {
		indexPath = fmt.Sprintf("%s-%d", opts.Index, opts.ShardID)
	}

	idx, err := index.NewIndexer(indexPath, logger)
	if err != nil {
		logger.Fatal("load index", zap.String("path", indexPath), zap.Error(err))
	}
	defer idx.Close()

	docCount, _ := idx.Index.DocCount()
	logger.Info("shard service ready",
		zap.Int("port", opts.Port),
		zap.String("index", indexPath),
		zap.Uint64("docs", docCount),
		zap.Int("groups", len(groups.Groups)))

	// etcd registration only in shard mode
	regCtx, cancelReg := context.WithCancel(context.Background())
	defer cancelReg()
	if opts.ShardID >= 0 {
		registry := shard.NewRegistry(shard.Endpoints(opts.Etcd), logger)
		addr := fmt.Sprintf("%s:%d", opts.Hostname, opts.Port)
		go func() {
			if err := registry.Register(regCtx, opts.ShardID, addr); err != nil {
				logger.Error("etcd registration ended", zap.Int("shard", opts.ShardID), zap.Error(err))
			}
		}()
	}

	projector := timeline.NewProjector(groups.TimeParser(), logger)
	searcher := api.NewSearcher(idx, groups, projector, opts.ShardID, logger)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(opts.Port),
		Handler: searcher.Router(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("http listening", zap.Int("port", opts.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutdown signal received")
	cancelReg()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("shard service stopped")
}
