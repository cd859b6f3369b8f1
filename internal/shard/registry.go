// Package shard registers timeline searchers in etcd and discovers them.
package shard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const (
	activePrefix = "/timeline/shards/active/"
	leaseTTL     = 30
)

// ErrNoShards is returned when discovery finds no active shard.
var ErrNoShards = errors.New("no active shards")

// Key returns the etcd key a shard registers under.
func Key(shardID int) string {
	return fmt.Sprintf("%s%d", activePrefix, shardID)
}

// Endpoints splits a comma-separated endpoint list, dropping blanks.
func Endpoints(list string) []string {
	var eps []string
	for _, ep := range strings.Split(list, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			eps = append(eps, ep)
		}
	}
	return eps
}

// Registry talks to the etcd cluster holding shard registrations.
type Registry struct {
	endpoints []string
	logger    *zap.Logger
}

func NewRegistry(endpoints []string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{endpoints: endpoints, logger: logger}
}

func (r *Registry) connect(timeout time.Duration) (*clientv3.Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   r.endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect: %w", err)
	}
	return cli, nil
}

// Register publishes addr under the shard's key with a keepalive lease and
// blocks until ctx is cancelled or the lease is lost.
func (r *Registry) Register(ctx context.Context, shardID int, addr string) error {
	cli, err := r.connect(5 * time.Second)
	if err != nil {
		return err
	}
	defer cli.Close()

	lease, err := cli.Grant(ctx, leaseTTL)
	if err != nil {
		return fmt.Errorf("etcd lease: %w", err)
	}

	key := Key(shardID)
	if _, err := cli.Put(ctx, key, addr, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("etcd put %s: %w", key, err)
	}

	ch, err := cli.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("etcd keepalive: %w", err)
	}

	r.logger.Info("shard registered",
		zap.Int("shard", shardID),
		zap.String("key", key),
		zap.String("addr", addr),
		zap.Int64("lease", int64(lease.ID)))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shard deregistering", zap.Int("shard", shardID))
			return nil
		case ka, ok := <-ch:
			if !ok || ka == nil {
				return fmt.Errorf("shard %d: keepalive lost", shardID)
			}
		}
	}
}

// Discover returns the addresses of every active shard, ordered by key.
func (r *Registry) Discover(ctx context.Context) ([]string, error) {
	cli, err := r.connect(5 * time.Second)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := cli.Get(ctx, activePrefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("etcd get: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNoShards
	}

	shards := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		shards = append(shards, string(kv.Value))
	}
	return shards, nil
}

// Static is a fixed shard list, used in single-node setups.
type Static []string

func (s Static) Discover(ctx context.Context) ([]string, error) {
	if len(s) == 0 {
		return nil, ErrNoShards
	}
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out, nil
}
