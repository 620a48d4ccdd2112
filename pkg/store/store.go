// Package store defines the contract shared by trace and flow-state stores
// and provides an in-memory implementation
//
// Records are opaque JSON documents addressed by ID. The reflection server
// only reads them; the tracing exporter and flows write them
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/kode4food/reflector/pkg/api"
)

type (
	// Reader loads single records and lists pages of records
	Reader interface {
		Load(ctx context.Context, id string) (json.RawMessage, error)
		List(ctx context.Context, params *api.ListParams) (*api.ListResult, error)
	}

	// Writer persists a record under an ID, replacing any previous version
	Writer interface {
		Save(ctx context.Context, id string, rec json.RawMessage) error
	}

	// Store is a readable and writable record store
	Store interface {
		Reader
		Writer
	}

	// Kind names the type of record a store instance holds
	Kind string
)

const (
	KindTraces     Kind = "traces"
	KindFlowStates Kind = "flowStates"
)

const (
	// DefaultListLimit is the page size used when a list call gives no limit
	DefaultListLimit = 10

	// MaxListLimit caps the page size a list call may request
	MaxListLimit = 1000
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidToken = errors.New("invalid continuation token")
	ErrInvalidLimit = errors.New("list limit must be positive")
	ErrEmptyID      = errors.New("record ID is required")
)

// NotFound wraps ErrNotFound with the missing ID
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ResolveLimit applies the default page size, caps it at MaxListLimit and
// rejects non-positive limits
func ResolveLimit(params *api.ListParams) (int, error) {
	limit := params.LimitOr(DefaultListLimit)
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return min(limit, MaxListLimit), nil
}

// PageEnd returns the exclusive end of the page of size limit starting at
// offset, saturating rather than overflowing
func PageEnd(offset, limit int) int {
	if offset > math.MaxInt-limit {
		return math.MaxInt
	}
	return offset + limit
}

// DecodeOffset parses an offset continuation token. An empty token starts
// at the beginning
func DecodeOffset(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	off, err := strconv.Atoi(token)
	if err != nil || off < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	return off, nil
}

// EncodeOffset produces the continuation token for the next page, or an
// empty token when no records remain
func EncodeOffset(next, total int) string {
	if next >= total {
		return ""
	}
	return strconv.Itoa(next)
}
