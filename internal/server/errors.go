package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/reflector/pkg/action"
	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/log"
	"github.com/kode4food/reflector/pkg/store"
)

type (
	errorKind int

	// handlerError is the failure half of a handler's core result. Its
	// kind alone decides how the failure is rendered
	handlerError struct {
		err     error
		message string
		traceID string
		stack   string
		kind    errorKind
	}
)

const (
	kindInternal errorKind = iota
	kindNotFound
	kindInvalidArgument
	kindFailedPrecondition
)

func (e *handlerError) Error() string {
	return e.message
}

func (e *handlerError) Unwrap() error {
	return e.err
}

func notFound(format string, args ...any) error {
	return &handlerError{
		kind:    kindNotFound,
		message: fmt.Sprintf(format, args...),
	}
}

func invalidArgument(err error) error {
	return &handlerError{
		kind:    kindInvalidArgument,
		message: err.Error(),
		err:     err,
	}
}

func failedPrecondition(format string, args ...any) error {
	return &handlerError{
		kind:    kindFailedPrecondition,
		message: fmt.Sprintf(format, args...),
	}
}

// internalError wraps a failure of an action or a store. Store rejections
// of caller-supplied paging values are reported as invalid arguments. An
// internal failure that carries no stack gets the caller's
func internalError(err error, traceID string) error {
	if errors.Is(err, store.ErrInvalidToken) ||
		errors.Is(err, store.ErrInvalidLimit) {
		return &handlerError{
			kind:    kindInvalidArgument,
			message: err.Error(),
			err:     err,
		}
	}
	stack := action.StackOf(err)
	if stack == "" {
		stack = string(debug.Stack())
	}
	return &handlerError{
		kind:    kindInternal,
		message: err.Error(),
		traceID: traceID,
		stack:   stack,
		err:     err,
	}
}

// respondError renders err. It is the only place a failure is translated
// into an HTTP status and body
func respondError(c *gin.Context, err error) {
	code, st := statusFor(err)
	if st == nil {
		c.String(code, "%s", err.Error())
		return
	}
	if code >= http.StatusInternalServerError {
		slog.Error("Reflection API request failed",
			slog.String("path", c.Request.URL.Path),
			log.TraceID(traceIDOf(st)),
			log.Error(err))
	}
	c.JSON(code, st)
}

// statusFor maps an error to its HTTP status code and Status body. A nil
// Status means the failure is rendered as plain text
func statusFor(err error) (int, *api.Status) {
	var he *handlerError
	if !errors.As(err, &he) {
		he = &handlerError{kind: kindInternal, message: err.Error(), err: err}
	}

	switch he.kind {
	case kindNotFound:
		return http.StatusNotFound, nil
	case kindInvalidArgument:
		return http.StatusBadRequest,
			api.NewStatus(api.StatusInvalidArgument, "%s", he.message)
	case kindFailedPrecondition:
		return http.StatusInternalServerError,
			api.NewStatus(api.StatusFailedPrecondition, "%s", he.message)
	default:
		st := api.NewStatus(api.StatusInternal, "%s", he.message)
		return http.StatusInternalServerError,
			st.WithDetails(he.traceID, stackOf(he))
	}
}

func stackOf(he *handlerError) string {
	if he.stack != "" {
		return he.stack
	}
	return action.StackOf(he.err)
}

func traceIDOf(st *api.Status) string {
	if st.Details == nil {
		return ""
	}
	return st.Details.TraceID
}
