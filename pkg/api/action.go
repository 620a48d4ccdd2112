package api

import "encoding/json"

type (
	// ActionType categorizes a registered action
	ActionType string

	// ActionDesc describes a registered action as reported by the actions
	// listing. Schemas are omitted entirely when the action has none
	ActionDesc struct {
		Key          string          `json:"key"`
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		Metadata     Metadata        `json:"metadata,omitempty"`
		InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
		OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
	}

	// RunActionRequest is the body of a runAction call
	RunActionRequest struct {
		Key   string          `json:"key"`
		Input json.RawMessage `json:"input,omitempty"`
	}

	// RunActionResponse is the envelope returned by a runAction call, and
	// the terminal line of a streamed one
	RunActionResponse struct {
		Result    json.RawMessage `json:"result,omitempty"`
		Telemetry *Telemetry      `json:"telemetry,omitempty"`
	}

	// Telemetry links an invocation to its trace record
	Telemetry struct {
		TraceID string `json:"traceId,omitempty"`
	}
)

const (
	ActionTypeCustom    ActionType = ""
	ActionTypeFlow      ActionType = "flow"
	ActionTypeModel     ActionType = "model"
	ActionTypeTool      ActionType = "tool"
	ActionTypePrompt    ActionType = "prompt"
	ActionTypeRetriever ActionType = "retriever"
)

// ActionKey builds the registry key for an action. Untyped actions are keyed
// by name alone, typed actions as /type/name
func ActionKey(typ ActionType, name string) string {
	if typ == ActionTypeCustom {
		return name
	}
	return "/" + string(typ) + "/" + name
}

// NewTelemetry returns telemetry for the given trace ID, or nil when the ID
// is empty so that the field is left out of the envelope
func NewTelemetry(traceID string) *Telemetry {
	if traceID == "" {
		return nil
	}
	return &Telemetry{TraceID: traceID}
}
