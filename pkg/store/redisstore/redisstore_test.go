package redisstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector/pkg/store"
	"github.com/kode4food/reflector/pkg/store/redisstore"
	"github.com/kode4food/reflector/pkg/store/storetest"
)

func TestRedisContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestNewRequiresClient(t *testing.T) {
	_, err := redisstore.New(nil, "test", store.KindTraces)
	assert.ErrorIs(t, err, redisstore.ErrClientRequired)
}

func TestNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Save(ctx, "late", storetest.Record("late", 300)))
	assert.NoError(t, s.Save(ctx, "early", storetest.Record("early", 100)))
	assert.NoError(t, s.Save(ctx, "middle", storetest.Record("middle", 200)))

	res, err := s.List(ctx, nil)
	assert.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, "late", storetest.ID(t, res.Items[0]))
	assert.Equal(t, "middle", storetest.ID(t, res.Items[1]))
	assert.Equal(t, "early", storetest.ID(t, res.Items[2]))
}

func TestMissingSortFieldUsesClock(t *testing.T) {
	server, err := miniredis.Run()
	assert.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer func() { _ = client.Close() }()

	tick := time.UnixMilli(1000)
	s, err := redisstore.New(client, "test", store.KindFlowStates,
		redisstore.WithSortField("createdAt"),
		redisstore.WithClock(func() time.Time {
			tick = tick.Add(time.Millisecond)
			return tick
		}),
	)
	assert.NoError(t, err)

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("rec-%d", i)
		assert.NoError(t, s.Save(ctx, id, json.RawMessage(
			fmt.Sprintf(`{"id":%q}`, id),
		)))
	}

	res, err := s.List(ctx, nil)
	assert.NoError(t, err)
	assert.Equal(t, "rec-3", storetest.ID(t, res.Items[0]))
	assert.Equal(t, "rec-1", storetest.ID(t, res.Items[2]))
}

func TestKeyLayout(t *testing.T) {
	s, server := newTestStore(t)
	ctx := context.Background()
	assert.NoError(t, s.Save(ctx, "abc", storetest.Record("abc", 1)))

	assert.True(t, server.Exists("test:traces:abc"))
	assert.True(t, server.Exists("test:traces:index"))
}

func TestNewClient(t *testing.T) {
	server, err := miniredis.Run()
	assert.NoError(t, err)
	defer server.Close()

	client := redisstore.NewClient(redisstore.Config{Addr: server.Addr()})
	defer func() { _ = client.Close() }()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func newTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	s, err := redisstore.New(client, "test", store.KindTraces)
	assert.NoError(t, err)
	return s, server
}
