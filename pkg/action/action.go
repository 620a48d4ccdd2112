package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/invopop/jsonschema"
	schemav "github.com/santhosh-tekuri/jsonschema/v6"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/tracing"
)

type (
	// Action is the type-erased form of a defined action
	Action interface {
		Name() string
		Desc() *api.ActionDesc

		// RunJSON decodes input, runs the action, and returns the encoded
		// output. Intermediate chunks are passed to cb when it is not nil
		RunJSON(
			ctx context.Context, input json.RawMessage, cb StreamCallback,
		) (json.RawMessage, error)
	}

	// StreamCallback receives encoded intermediate chunks of a run
	StreamCallback func(context.Context, json.RawMessage) error

	// Func is the function behind a non-streaming action
	Func[I, O any] func(ctx context.Context, input I) (O, error)

	// StreamingFunc is the function behind a streaming action. Each call to
	// send emits one chunk
	StreamingFunc[I, O, S any] func(
		ctx context.Context, input I, send func(context.Context, S) error,
	) (O, error)

	// PanicError reports a panic raised while running an action
	PanicError struct {
		Value any
		Stack string
	}

	// RunError is a failure returned by an action, along with the stack
	// of the goroutine that returned it
	RunError struct {
		Err   error
		Stack string
	}

	// StackTracer is implemented by errors that carry a stack trace
	StackTracer interface {
		StackTrace() string
	}

	action[I, O, S any] struct {
		desc      *api.ActionDesc
		validator *schemav.Schema
		fn        StreamingFunc[I, O, S]
	}
)

var (
	ErrNameRequired = errors.New("action name is required")
	ErrInvalidInput = errors.New("invalid action input")
	ErrBadSchema    = errors.New("invalid action schema")
)

// Define creates a non-streaming action
func Define[I, O any](
	name string, fn Func[I, O], opts ...Option,
) (Action, error) {
	return DefineStreaming[I, O, struct{}](name,
		func(
			ctx context.Context, in I, _ func(context.Context, struct{}) error,
		) (O, error) {
			return fn(ctx, in)
		},
		opts...,
	)
}

// DefineStreaming creates an action that may emit chunks of type S
func DefineStreaming[I, O, S any](
	name string, fn StreamingFunc[I, O, S], opts ...Option,
) (Action, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	s := newSettings(opts)

	var inNative, outNative *jsonschema.Schema
	if !s.noInfer {
		inNative = InferSchema[I]()
		outNative = InferSchema[O]()
	}
	inSchema, err := ToJSONSchema(inNative, s.inputSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSchema, err)
	}
	outSchema, err := ToJSONSchema(outNative, s.outputSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSchema, err)
	}

	var validator *schemav.Schema
	if inSchema != nil {
		validator, err = CompileSchema(inSchema)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSchema, err)
		}
	}

	return &action[I, O, S]{
		desc: &api.ActionDesc{
			Key:          api.ActionKey(s.typ, name),
			Name:         name,
			Description:  s.description,
			Metadata:     s.metadata,
			InputSchema:  inSchema,
			OutputSchema: outSchema,
		},
		validator: validator,
		fn:        fn,
	}, nil
}

func (a *action[I, O, S]) Name() string {
	return a.desc.Name
}

// Desc returns the descriptor of the action. It must not be modified
func (a *action[I, O, S]) Desc() *api.ActionDesc {
	return a.desc
}

func (a *action[I, O, S]) RunJSON(
	ctx context.Context, input json.RawMessage, cb StreamCallback,
) (json.RawMessage, error) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrType, "action"),
		attribute.String(tracing.AttrInput, string(input)),
	}
	return tracing.RunInSpan(ctx, a.desc.Name, attrs,
		func(ctx context.Context, span trace.Span) (json.RawMessage, error) {
			out, err := a.run(ctx, input, cb)
			if err == nil {
				span.SetAttributes(
					attribute.String(tracing.AttrOutput, string(out)),
				)
			}
			return out, err
		},
	)
}

func (a *action[I, O, S]) run(
	ctx context.Context, input json.RawMessage, cb StreamCallback,
) (res json.RawMessage, err error) {
	in, err := a.decodeInput(input)
	if err != nil {
		return nil, withStack(err)
	}

	send := func(ctx context.Context, chunk S) error {
		if cb == nil {
			return nil
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		return cb(ctx, data)
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &PanicError{
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	out, err := a.fn(ctx, in, send)
	if err != nil {
		return nil, withStack(err)
	}
	return json.Marshal(out)
}

func (a *action[I, O, S]) decodeInput(input json.RawMessage) (I, error) {
	var in I
	if a.validator != nil {
		if err := ValidateJSON(a.validator, input); err != nil {
			return in, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	if isNull(input) {
		return in, nil
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return in, nil
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.Value)
}

// StackTrace returns the goroutine stack captured at the panic
func (e *PanicError) StackTrace() string {
	return e.Stack
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// StackTrace returns the goroutine stack captured when the action failed
func (e *RunError) StackTrace() string {
	return e.Stack
}

// StackOf returns the stack trace carried by err, if any
func StackOf(err error) string {
	var st StackTracer
	if errors.As(err, &st) {
		return st.StackTrace()
	}
	return ""
}

func withStack(err error) error {
	if StackOf(err) != "" {
		return err
	}
	return &RunError{
		Err:   err,
		Stack: string(debug.Stack()),
	}
}

func isNull(input json.RawMessage) bool {
	return len(input) == 0 || string(input) == "null"
}
