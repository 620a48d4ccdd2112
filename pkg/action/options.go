package action

import (
	"encoding/json"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"
)

type (
	// Option configures an action definition
	Option func(*settings)

	settings struct {
		description  string
		typ          api.ActionType
		metadata     api.Metadata
		inputSchema  json.RawMessage
		outputSchema json.RawMessage
		flowStates   store.Writer
		noInfer      bool
	}
)

// WithDescription sets the human-readable description of the action
func WithDescription(desc string) Option {
	return func(s *settings) {
		s.description = desc
	}
}

// WithType categorizes the action, which also determines its registry key
func WithType(typ api.ActionType) Option {
	return func(s *settings) {
		s.typ = typ
	}
}

// WithMetadata merges free-form metadata into the action descriptor
func WithMetadata(meta api.Metadata) Option {
	return func(s *settings) {
		s.metadata = s.metadata.Apply(meta)
	}
}

// WithInputSchema supplies a precomputed JSON schema for the input. It is
// used only when no schema can be inferred from the input type
func WithInputSchema(schema json.RawMessage) Option {
	return func(s *settings) {
		s.inputSchema = schema
	}
}

// WithOutputSchema supplies a precomputed JSON schema for the output. It
// is used only when no schema can be inferred from the output type
func WithOutputSchema(schema json.RawMessage) Option {
	return func(s *settings) {
		s.outputSchema = schema
	}
}

// WithoutInference disables schema inference from the Go types, leaving
// only precomputed schemas
func WithoutInference() Option {
	return func(s *settings) {
		s.noInfer = true
	}
}

// WithFlowStateStore makes a flow persist its flow-state records to w
func WithFlowStateStore(w store.Writer) Option {
	return func(s *settings) {
		s.flowStates = w
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
