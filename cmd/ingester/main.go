package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/config"
	"github.com/sirensolutions/kibi-timeline/internal/ingest"
	"github.com/sirensolutions/kibi-timeline/internal/logging"
)

func outputPaths(prefix string, shards int) []string {
	if shards <= 1 {
		return []string{prefix + ".jsonl"}
	}
	paths := make([]string, shards)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s-%d.jsonl", prefix, i)
	}
	return paths
}

func main() {
	var opts config.IngesterOptions
	if err := config.Parse(&opts, os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.Must(opts.LogLevel, opts.LogFormat)
	defer logger.Sync()

	logger.Info("starting ingester",
		zap.String("input", opts.Input),
		zap.String("output", opts.Output),
		zap.Int("shards", opts.Shards),
		zap.Int("workers", opts.Workers),
		zap.Int("max-docs", opts.MaxDocs))

	start := time.Now()

	in, err := os.Open(opts.Input)
	if err != nil {
		logger.Fatal("open input", zap.Error(err))
	}
	defer in.Close()

	paths := outputPaths(opts.Output, opts.Shards)
	outs := make([]io.Writer, len(paths))
	for i, path := range paths {
		f, err := os.Create(path)
		if err != nil {
			logger.Fatal("create output", zap.String("path", path), zap.Error(err))
		}
		defer f.Close()
		outs[i] = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutdown requested")
		cancel()
	}()

	stats, err := ingest.Run(ctx, in, outs, ingest.Options{
		Workers: opts.Workers,
		MaxDocs: opts.MaxDocs,
		Index:   opts.Index,
	}, logger)
	if err != nil {
		logger.Fatal("ingest failed", zap.Error(err))
	}

	logger.Info("ingester complete",
		zap.Int64("read", stats.Read),
		zap.Int64("written", stats.Written),
		zap.Int64("skipped", stats.Skipped),
		zap.Strings("outputs", paths),
		zap.Duration("took", time.Since(start)))
}
