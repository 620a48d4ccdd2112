// Package redisstore implements a record store on Redis
//
// Each record is kept as a string value, and a sorted set indexes the
// record IDs by a numeric field of the record so pages come back newest
// first
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"
)

type (
	// Store is a store.Store backed by a Redis client
	Store struct {
		client    redis.UniversalClient
		prefix    string
		kind      store.Kind
		sortField string
		now       func() time.Time
	}

	// Config holds the connection settings of a Redis store
	Config struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// Option customizes a Store
	Option func(*Store)
)

// DefaultSortField is the record field used to order listings
const DefaultSortField = "startTime"

var ErrClientRequired = errors.New("redis client is required")

var _ store.Store = (*Store)(nil)

// NewClient opens a Redis client for the provided configuration
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New creates a Store holding records of the given kind under prefix
func New(
	client redis.UniversalClient, prefix string, kind store.Kind,
	opts ...Option,
) (*Store, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	s := &Store{
		client:    client,
		prefix:    prefix,
		kind:      kind,
		sortField: DefaultSortField,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WithSortField orders listings by the named numeric field of each record
// (a gjson path). Records lacking it are ordered by save time
func WithSortField(path string) Option {
	return func(s *Store) {
		s.sortField = path
	}
}

// WithClock replaces the time source used for records lacking a sort field
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Load returns the record saved under id
func (s *Store) Load(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save stores rec under id and indexes it for listing
func (s *Store) Save(ctx context.Context, id string, rec json.RawMessage) error {
	if id == "" {
		return store.ErrEmptyID
	}
	score := s.scoreOf(rec)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(id), []byte(rec), 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  score,
			Member: id,
		})
		return nil
	})
	return err
}

// List returns a page of records ordered by descending sort field
func (s *Store) List(
	ctx context.Context, params *api.ListParams,
) (*api.ListResult, error) {
	limit, err := store.ResolveLimit(params)
	if err != nil {
		return nil, err
	}
	offset, err := store.DecodeOffset(params.Token())
	if err != nil {
		return nil, err
	}

	total, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}

	end := store.PageEnd(offset, limit)
	res := &api.ListResult{Items: []json.RawMessage{}}
	ids, err := s.client.ZRevRange(
		ctx, s.indexKey(), int64(offset), int64(end-1),
	).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = s.recordKey(id)
		}
		vals, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if str, ok := v.(string); ok {
				res.Items = append(res.Items, json.RawMessage(str))
			}
		}
	}

	res.ContinuationToken = store.EncodeOffset(end, int(total))
	return res, nil
}

func (s *Store) scoreOf(rec json.RawMessage) float64 {
	if s.sortField != "" {
		if res := gjson.GetBytes(rec, s.sortField); res.Type == gjson.Number {
			return res.Num
		}
	}
	return float64(s.now().UnixMilli())
}

func (s *Store) recordKey(id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, s.kind, id)
}

func (s *Store) indexKey() string {
	return fmt.Sprintf("%s:%s:index", s.prefix, s.kind)
}
