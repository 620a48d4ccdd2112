package api

import "encoding/json"

type (
	// FlowID uniquely identifies one run of a flow
	FlowID string

	// FlowState is the persisted progress and outcome of a flow run
	FlowState struct {
		FlowID    FlowID          `json:"flowId"`
		Name      string          `json:"name"`
		StartTime float64         `json:"startTime"`
		Input     json.RawMessage `json:"input,omitempty"`
		TraceID   string          `json:"traceId,omitempty"`
		Operation *Operation      `json:"operation"`
	}

	// Operation tracks whether a flow run has finished
	Operation struct {
		Name   FlowID           `json:"name"`
		Done   bool             `json:"done"`
		Result *OperationResult `json:"result,omitempty"`
	}

	// OperationResult holds either the response or the error of a finished
	// flow run
	OperationResult struct {
		Response json.RawMessage `json:"response,omitempty"`
		Error    string          `json:"error,omitempty"`
	}
)
