package api

import "fmt"

type (
	// StatusCode is the canonical name of an error kind
	StatusCode string

	// Status is the error envelope shared by every JSON failure response
	Status struct {
		Code    StatusCode     `json:"code"`
		Message string         `json:"message"`
		Details *StatusDetails `json:"details,omitempty"`
	}

	// StatusDetails carries the correlated trace ID and a stack trace, when
	// either is known
	StatusDetails struct {
		TraceID string `json:"traceId,omitempty"`
		Stack   string `json:"stack,omitempty"`
	}
)

const (
	StatusOK                 StatusCode = "OK"
	StatusInvalidArgument    StatusCode = "INVALID_ARGUMENT"
	StatusNotFound           StatusCode = "NOT_FOUND"
	StatusFailedPrecondition StatusCode = "FAILED_PRECONDITION"
	StatusInternal           StatusCode = "INTERNAL"
)

// NewStatus creates a Status without details
func NewStatus(code StatusCode, format string, args ...any) *Status {
	return &Status{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of the Status carrying the provided trace ID
// and stack. Details are dropped when both are empty
func (s *Status) WithDetails(traceID, stack string) *Status {
	res := *s
	if traceID == "" && stack == "" {
		res.Details = nil
		return &res
	}
	res.Details = &StatusDetails{
		TraceID: traceID,
		Stack:   stack,
	}
	return &res
}

// Error allows a Status to be returned as an error by clients
func (s *Status) Error() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}
