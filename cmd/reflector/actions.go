package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kode4food/reflector/pkg/action"
	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"
)

type (
	greetInput struct {
		Name string `json:"name" jsonschema:"description=Who to greet"`
	}

	countdownInput struct {
		From  int `json:"from" jsonschema:"minimum=0,maximum=100"`
		Delay int `json:"delayMs,omitempty"`
	}

	storyInput struct {
		Subject string `json:"subject"`
		Lines   int    `json:"lines,omitempty"`
	}

	story struct {
		Title string   `json:"title"`
		Lines []string `json:"lines"`
	}
)

// sampleActions defines the demo actions this process exposes. Flows record
// their flow state into flows
func sampleActions(flows store.Writer) ([]action.Action, error) {
	greet, err := action.Define("greet",
		func(_ context.Context, in greetInput) (string, error) {
			return fmt.Sprintf("Hello, %s!", in.Name), nil
		},
		action.WithDescription("Greets someone by name"),
	)
	if err != nil {
		return nil, err
	}

	echo, err := action.Define("echo",
		func(_ context.Context, in any) (any, error) {
			return in, nil
		},
		action.WithDescription("Returns its input unchanged"),
		action.WithMetadata(api.Metadata{"sample": true}),
	)
	if err != nil {
		return nil, err
	}

	countdown, err := action.DefineStreaming("countdown",
		func(
			ctx context.Context, in countdownInput,
			send func(context.Context, int) error,
		) (string, error) {
			delay := time.Duration(in.Delay) * time.Millisecond
			for i := in.From; i > 0; i-- {
				if err := send(ctx, i); err != nil {
					return "", err
				}
				if err := sleep(ctx, delay); err != nil {
					return "", err
				}
			}
			return "liftoff", nil
		},
		action.WithDescription("Streams a countdown"),
	)
	if err != nil {
		return nil, err
	}

	tellStory, err := action.DefineStreamingFlow("tellStory",
		func(
			ctx context.Context, in storyInput,
			send func(context.Context, string) error,
		) (*story, error) {
			n := max(in.Lines, 1)
			res := &story{Title: "The tale of " + in.Subject}
			for i := range n {
				line := fmt.Sprintf("%s, part %d.", in.Subject, i+1)
				if err := send(ctx, line); err != nil {
					return nil, err
				}
				res.Lines = append(res.Lines, line)
			}
			return res, nil
		},
		action.WithDescription("Tells a short story, line by line"),
		action.WithFlowStateStore(flows),
	)
	if err != nil {
		return nil, err
	}

	shout, err := action.DefineFlow("shout",
		func(_ context.Context, in string) (string, error) {
			return strings.ToUpper(in), nil
		},
		action.WithDescription("Upper-cases a string"),
		action.WithFlowStateStore(flows),
	)
	if err != nil {
		return nil, err
	}

	return []action.Action{greet, echo, countdown, tellStory, shout}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
