// Package storetest provides behavior checks shared by store
// implementations
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"
)

// Constructor creates an empty store for a single check
type Constructor func(t *testing.T) store.Store

// Run exercises the store contract against stores built by newStore
func Run(t *testing.T, newStore Constructor) {
	t.Helper()

	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := Record("one", 1)

		assert.NoError(t, s.Save(ctx, "one", rec))
		got, err := s.Load(ctx, "one")
		assert.NoError(t, err)
		assert.JSONEq(t, string(rec), string(got))
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		assert.NoError(t, s.Save(ctx, "one", Record("one", 1)))
		assert.NoError(t, s.Save(ctx, "one", Record("one", 2)))

		got, err := s.Load(ctx, "one")
		assert.NoError(t, err)
		assert.JSONEq(t, string(Record("one", 2)), string(got))

		res, err := s.List(ctx, nil)
		assert.NoError(t, err)
		assert.Len(t, res.Items, 1)
	})

	t.Run("empty id", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(context.Background(), "", Record("", 1))
		assert.ErrorIs(t, err, store.ErrEmptyID)
	})

	t.Run("list empty", func(t *testing.T) {
		s := newStore(t)
		res, err := s.List(context.Background(), nil)
		assert.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Empty(t, res.ContinuationToken)
	})

	t.Run("list pages", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 1; i <= 5; i++ {
			id := fmt.Sprintf("rec-%d", i)
			assert.NoError(t, s.Save(ctx, id, Record(id, i)))
		}

		seen := map[string]bool{}
		limit := 2
		params := &api.ListParams{Limit: &limit}
		pages := 0
		for {
			res, err := s.List(ctx, params)
			assert.NoError(t, err)
			assert.LessOrEqual(t, len(res.Items), limit)
			for _, item := range res.Items {
				id := ID(t, item)
				assert.False(t, seen[id], "duplicate %s", id)
				seen[id] = true
			}
			pages++
			if res.ContinuationToken == "" || pages > 5 {
				break
			}
			token := res.ContinuationToken
			params = &api.ListParams{Limit: &limit, ContinuationToken: &token}
		}
		assert.Len(t, seen, 5)
		assert.Equal(t, 3, pages)
	})

	t.Run("default limit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < store.DefaultListLimit+2; i++ {
			id := fmt.Sprintf("rec-%02d", i)
			assert.NoError(t, s.Save(ctx, id, Record(id, i)))
		}

		res, err := s.List(ctx, &api.ListParams{})
		assert.NoError(t, err)
		assert.Len(t, res.Items, store.DefaultListLimit)
		assert.NotEmpty(t, res.ContinuationToken)
	})

	t.Run("huge limit after first page", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			id := fmt.Sprintf("rec-%d", i)
			assert.NoError(t, s.Save(ctx, id, Record(id, i)))
		}

		one := 1
		first, err := s.List(ctx, &api.ListParams{Limit: &one})
		assert.NoError(t, err)
		assert.Len(t, first.Items, 1)
		if !assert.NotEmpty(t, first.ContinuationToken) {
			return
		}

		huge := math.MaxInt
		token := first.ContinuationToken
		rest, err := s.List(ctx,
			&api.ListParams{Limit: &huge, ContinuationToken: &token},
		)
		assert.NoError(t, err)
		assert.Len(t, rest.Items, 2)
		assert.Empty(t, rest.ContinuationToken)
	})

	t.Run("invalid limit", func(t *testing.T) {
		s := newStore(t)
		limit := 0
		_, err := s.List(context.Background(), &api.ListParams{Limit: &limit})
		assert.ErrorIs(t, err, store.ErrInvalidLimit)
	})

	t.Run("invalid token", func(t *testing.T) {
		s := newStore(t)
		token := "%%%not-a-token"
		_, err := s.List(context.Background(),
			&api.ListParams{ContinuationToken: &token},
		)
		assert.ErrorIs(t, err, store.ErrInvalidToken)
	})
}

// Record builds a small test record carrying an ID and a start time
func Record(id string, start int) json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":        id,
		"startTime": start,
	})
	return data
}

// ID extracts the ID of a record built by Record
func ID(t *testing.T, rec json.RawMessage) string {
	t.Helper()
	var res struct {
		ID string `json:"id"`
	}
	assert.NoError(t, json.Unmarshal(rec, &res))
	return res.ID
}
