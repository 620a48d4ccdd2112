package action_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector/pkg/action"
)

func TestStreamYieldsChunksInOrder(t *testing.T) {
	a := counter(t)

	var chunks []string
	var final *action.StreamValue
	for v, err := range action.Stream(
		context.Background(), a, json.RawMessage(`5`),
	) {
		assert.NoError(t, err)
		if v.Done {
			final = v
			continue
		}
		chunks = append(chunks, string(v.Chunk))
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, chunks)
	if assert.NotNil(t, final) {
		assert.Equal(t, `5`, string(final.Output))
	}
}

func TestStreamError(t *testing.T) {
	boom := errors.New("boom")
	a, err := action.DefineStreaming("fail",
		func(
			ctx context.Context, _ any, send func(context.Context, int) error,
		) (any, error) {
			_ = send(ctx, 1)
			return nil, boom
		},
	)
	assert.NoError(t, err)

	var chunks int
	var last error
	for v, err := range action.Stream(context.Background(), a, nil) {
		if err != nil {
			last = err
			continue
		}
		assert.False(t, v.Done)
		chunks++
	}
	assert.Equal(t, 1, chunks)
	assert.ErrorIs(t, last, boom)
}

func TestStreamBreakCancelsRun(t *testing.T) {
	stopped := make(chan error, 1)
	a, err := action.DefineStreaming("endless",
		func(
			ctx context.Context, _ any, send func(context.Context, int) error,
		) (any, error) {
			for i := 0; ; i++ {
				if err := send(ctx, i); err != nil {
					stopped <- err
					return nil, err
				}
			}
		},
	)
	assert.NoError(t, err)

	for v, err := range action.Stream(context.Background(), a, nil) {
		assert.NoError(t, err)
		if string(v.Chunk) == "2" {
			break
		}
	}
	assert.ErrorIs(t, <-stopped, context.Canceled)
}

func TestStreamConsumedOnce(t *testing.T) {
	seq := action.Stream(context.Background(), counter(t), json.RawMessage(`1`))
	for range seq {
	}

	var errs []error
	for _, err := range seq {
		errs = append(errs, err)
	}
	assert.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], action.ErrStreamConsumed)
}

func counter(t *testing.T) action.Action {
	t.Helper()
	a, err := action.DefineStreaming("counter",
		func(
			ctx context.Context, n int, send func(context.Context, int) error,
		) (int, error) {
			for i := 1; i <= n; i++ {
				if err := send(ctx, i); err != nil {
					return 0, err
				}
			}
			return n, nil
		},
	)
	assert.NoError(t, err)
	return a
}
