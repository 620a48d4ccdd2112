package action

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync/atomic"
)

// StreamValue is one element of a streamed run: either an intermediate
// chunk, or the final output with Done set
type StreamValue struct {
	Chunk  json.RawMessage
	Output json.RawMessage
	Done   bool
}

var ErrStreamConsumed = errors.New("stream already consumed")

// Stream runs a with input and exposes the run as a lazy sequence. The
// action starts when iteration begins, chunks are yielded in emission order,
// and the sequence ends with the final output or the run's error. Breaking
// out of the loop cancels the run. The sequence can be iterated only once
func Stream(
	ctx context.Context, a Action, input json.RawMessage,
) iter.Seq2[*StreamValue, error] {
	var started atomic.Bool
	return func(yield func(*StreamValue, error) bool) {
		if !started.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			out json.RawMessage
			err error
		}
		chunks := make(chan json.RawMessage)
		done := make(chan outcome, 1)

		go func() {
			out, err := a.RunJSON(ctx, input,
				func(ctx context.Context, chunk json.RawMessage) error {
					select {
					case chunks <- chunk:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				},
			)
			done <- outcome{out: out, err: err}
		}()

		for {
			select {
			case chunk := <-chunks:
				if !yield(&StreamValue{Chunk: chunk}, nil) {
					return
				}
			case res := <-done:
				if res.err != nil {
					yield(nil, res.err)
					return
				}
				yield(&StreamValue{Output: res.out, Done: true}, nil)
				return
			}
		}
	}
}
