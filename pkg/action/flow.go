package action

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/log"
	"github.com/kode4food/reflector/pkg/store"
	"github.com/kode4food/reflector/pkg/tracing"
)

// DefineFlow creates a flow: an action of type flow that records a
// flow-state document for every run when given WithFlowStateStore
func DefineFlow[I, O any](
	name string, fn Func[I, O], opts ...Option,
) (Action, error) {
	return DefineStreamingFlow[I, O, struct{}](name,
		func(
			ctx context.Context, in I, _ func(context.Context, struct{}) error,
		) (O, error) {
			return fn(ctx, in)
		},
		opts...,
	)
}

// DefineStreamingFlow creates a flow that may emit chunks of type S
func DefineStreamingFlow[I, O, S any](
	name string, fn StreamingFunc[I, O, S], opts ...Option,
) (Action, error) {
	s := newSettings(opts)
	opts = append(opts, WithType(api.ActionTypeFlow))
	return DefineStreaming(name, flowFunc(name, s.flowStates, fn), opts...)
}

func flowFunc[I, O, S any](
	name string, states store.Writer, fn StreamingFunc[I, O, S],
) StreamingFunc[I, O, S] {
	return func(
		ctx context.Context, in I, send func(context.Context, S) error,
	) (O, error) {
		flowID := api.FlowID(uuid.NewString())
		tracing.SetCustomMetadataAttribute(ctx, "flow-id", string(flowID))

		input, _ := json.Marshal(in)
		state := &api.FlowState{
			FlowID:    flowID,
			Name:      name,
			StartTime: float64(time.Now().UnixMilli()),
			Input:     input,
			TraceID:   tracing.TraceID(ctx),
			Operation: &api.Operation{Name: flowID},
		}

		out, err := fn(ctx, in, send)

		state.Operation.Done = true
		state.Operation.Result = &api.OperationResult{}
		if err != nil {
			state.Operation.Result.Error = err.Error()
		} else if res, merr := json.Marshal(out); merr == nil {
			state.Operation.Result.Response = res
		}
		saveFlowState(ctx, states, state)
		return out, err
	}
}

func saveFlowState(
	ctx context.Context, states store.Writer, state *api.FlowState,
) {
	if states == nil {
		return
	}
	data, err := json.Marshal(state)
	if err == nil {
		err = states.Save(ctx, string(state.FlowID), data)
	}
	if err != nil {
		slog.Warn("Failed to save flow state",
			log.FlowID(state.FlowID),
			log.Error(err))
	}
}
