package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/reflector/internal/config"
	"github.com/kode4food/reflector/pkg/log"
	"github.com/kode4food/reflector/pkg/registry"
	"github.com/kode4food/reflector/pkg/store"
	"github.com/kode4food/reflector/pkg/store/blobstore"
	"github.com/kode4food/reflector/pkg/store/redisstore"
)

// envStores holds the trace and flow-state stores opened for every
// configured environment, and whatever must be closed with them
type envStores struct {
	traces  map[string]store.Store
	flows   map[string]store.Store
	closers []io.Closer
}

var ErrUnknownStoreType = errors.New("unknown store type")

func openEnvStores(ctx context.Context, cfg *config.Config) (*envStores, error) {
	res := &envStores{
		traces: map[string]store.Store{},
		flows:  map[string]store.Store{},
	}
	for _, env := range cfg.Envs {
		if err := res.open(ctx, cfg, env); err != nil {
			res.Close()
			return nil, fmt.Errorf("env %s: %w", env, err)
		}
	}
	return res, nil
}

func (e *envStores) open(
	ctx context.Context, cfg *config.Config, env string,
) error {
	st := cfg.StoreFor(env)
	switch st.Type {
	case config.StoreTypeMemory:
		e.traces[env] = store.NewMemory(cfg.MemoryStoreSize)
		e.flows[env] = store.NewMemory(cfg.MemoryStoreSize)
		return nil

	case config.StoreTypeRedis:
		client := redisstore.NewClient(redisstore.Config{
			Addr:     st.Addr,
			Password: st.Password,
			DB:       st.DB,
		})
		e.closers = append(e.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		return e.openRedis(client, st.Prefix, env)

	case config.StoreTypeBlob:
		traces, err := blobstore.Open(ctx, st.BucketURL, st.Prefix+"traces/")
		if err != nil {
			return err
		}
		e.closers = append(e.closers, traces)
		flows, err := blobstore.Open(ctx, st.BucketURL,
			st.Prefix+"flowStates/")
		if err != nil {
			return err
		}
		e.closers = append(e.closers, flows)
		e.traces[env] = traces
		e.flows[env] = flows
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownStoreType, st.Type)
	}
}

func (e *envStores) openRedis(
	client redis.UniversalClient, prefix, env string,
) error {
	if prefix == "" {
		prefix = config.DefaultRedisPrefix
	}
	traces, err := redisstore.New(client, prefix+":"+env, store.KindTraces)
	if err != nil {
		return err
	}
	flows, err := redisstore.New(client, prefix+":"+env,
		store.KindFlowStates,
	)
	if err != nil {
		return err
	}
	e.traces[env] = traces
	e.flows[env] = flows
	return nil
}

// Register adds every opened store to reg
func (e *envStores) Register(reg *registry.Registry) error {
	for env, st := range e.traces {
		if err := reg.RegisterTraceStore(env, st); err != nil {
			return err
		}
	}
	for env, st := range e.flows {
		if err := reg.RegisterFlowStateStore(env, st); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the connections and buckets behind the stores
func (e *envStores) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close store", log.Error(err))
		}
	}
	e.closers = nil
}
