// Package config holds command options and the timeline groups file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// LogOptions are shared by every command.
type LogOptions struct {
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level (debug, info, warn, error)"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"console" description:"Log format (console, json)"`
}

type IngesterOptions struct {
	LogOptions
	Input   string `long:"input" env:"INPUT" default:"export.jsonl" description:"Path to an event export (Elasticsearch hits or bare events, one per line)"`
	Output  string `long:"output" env:"OUTPUT" default:"events" description:"Output path prefix; shards are written to <output>-<n>.jsonl"`
	Shards  int    `long:"shards" env:"SHARDS" default:"1" description:"Number of shard files (1 writes <output>.jsonl)"`
	Workers int    `long:"workers" env:"WORKERS" default:"8" description:"Number of normalizer goroutines"`
	MaxDocs int    `long:"max-docs" env:"MAX_DOCS" default:"0" description:"Max events to read (0 = all)"`
	Index   string `long:"index-name" env:"INDEX_NAME" default:"events" description:"Index name for events that carry none"`
}

type IndexerOptions struct {
	LogOptions
	Input     string `long:"input" env:"INPUT" default:"events.jsonl" description:"Path to JSONL events"`
	Index     string `long:"index" env:"INDEX" default:"events.bleve" description:"Path to bleve index"`
	BatchSize int    `long:"batch-size" env:"BATCH_SIZE" default:"1000" description:"Batch size for indexing"`
	MaxDocs   int    `long:"max-docs" env:"MAX_DOCS" default:"0" description:"Max docs to index (0 = all)"`
}

type SearcherOptions struct {
	LogOptions
	ShardID  int    `long:"shard-id" env:"SHARD_ID" default:"-1" description:"Shard ID (-1 = no etcd registration, single-node mode)"`
	Port     int    `long:"port" env:"PORT" default:"8080" description:"HTTP port"`
	Hostname string `long:"hostname" env:"HOSTNAME" default:"localhost" description:"Hostname to register in etcd"`
	Etcd     string `long:"etcd" env:"ETCD_ENDPOINTS" default:"localhost:2379" description:"etcd endpoints (comma-separated)"`
	Index    string `long:"index" env:"INDEX" default:"events.bleve" description:"Base index path"`
	Groups   string `long:"groups" env:"GROUPS_FILE" default:"timeline.yaml" description:"Timeline groups file"`
}

type CoordinatorOptions struct {
	LogOptions
	Port     int           `long:"port" env:"PORT" default:"8090" description:"Coordinator HTTP port"`
	Etcd     string        `long:"etcd" env:"ETCD_ENDPOINTS" default:"localhost:2379" description:"etcd endpoints (comma-separated)"`
	Redis    string        `long:"redis" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address (empty disables the cache)"`
	CacheTTL time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"5m" description:"Cached response lifetime"`
	Limit    int           `long:"limit" env:"LIMIT" default:"500" description:"Default item limit"`
}

// ErrHelp is returned by Parse when help was requested and printed.
var ErrHelp = errors.New("help requested")

// Parse fills opts from args and the environment.
func Parse(opts interface{}, args []string) error {
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return ErrHelp
		}
		return fmt.Errorf("parse options: %w", err)
	}
	return nil
}
