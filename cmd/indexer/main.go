package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/config"
	"github.com/sirensolutions/kibi-timeline/internal/index"
	"github.com/sirensolutions/kibi-timeline/internal/logging"
)

func main() {
	var opts config.IndexerOptions
	if err := config.Parse(&opts, os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.Must(opts.LogLevel, opts.LogFormat)
	defer logger.Sync()

	logger.Info("starting indexer",
		zap.String("input", opts.Input),
		zap.String("index", opts.Index),
		zap.Int("batch", opts.BatchSize),
		zap.Int("max", opts.MaxDocs))

	indexer, err := index.NewIndexer(opts.Index, logger)
	if err != nil {
		logger.Fatal("init indexer", zap.Error(err))
	}
	defer indexer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutdown requested")
		cancel()
	}()

	start := time.Now()
	if err := indexer.IndexJSONL(ctx, opts.Input, opts.BatchSize, opts.MaxDocs); err != nil {
		logger.Fatal("indexing failed", zap.Error(err))
	}
	logger.Info("indexer complete", zap.Duration("took", time.Since(start)))
}
