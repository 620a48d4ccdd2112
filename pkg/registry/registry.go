// Package registry holds the actions and per-environment stores that the
// reflection API exposes
package registry

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/kode4food/reflector/pkg/action"
	"github.com/kode4food/reflector/pkg/store"
)

// Registry maps action keys to actions and environment names to trace and
// flow-state stores. It is meant to be populated at startup and read
// concurrently afterwards
type Registry struct {
	actions     map[string]action.Action
	traceStores map[string]store.Store
	flowStores  map[string]store.Store
	mu          sync.RWMutex
}

var (
	ErrDuplicateAction = errors.New("action already registered")
	ErrNilAction       = errors.New("action is required")
	ErrNilStore        = errors.New("store is required")
)

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		actions:     map[string]action.Action{},
		traceStores: map[string]store.Store{},
		flowStores:  map[string]store.Store{},
	}
}

// RegisterAction adds actions, keyed by their descriptor key
func (r *Registry) RegisterAction(actions ...action.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range actions {
		if a == nil {
			return ErrNilAction
		}
		key := a.Desc().Key
		if _, ok := r.actions[key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAction, key)
		}
		r.actions[key] = a
	}
	return nil
}

// ListActions returns a snapshot of the registered actions by key
func (r *Registry) ListActions() map[string]action.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.actions)
}

// LookupAction returns the action registered under key
func (r *Registry) LookupAction(key string) (action.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[key]
	return a, ok
}

// RegisterTraceStore sets the trace store of an environment
func (r *Registry) RegisterTraceStore(env string, s store.Store) error {
	return r.registerStore(r.traceStores, env, s)
}

// RegisterFlowStateStore sets the flow-state store of an environment
func (r *Registry) RegisterFlowStateStore(env string, s store.Store) error {
	return r.registerStore(r.flowStores, env, s)
}

// LookupTraceStore returns the trace store of an environment
func (r *Registry) LookupTraceStore(env string) (store.Store, bool) {
	return r.lookupStore(r.traceStores, env)
}

// LookupFlowStateStore returns the flow-state store of an environment
func (r *Registry) LookupFlowStateStore(env string) (store.Store, bool) {
	return r.lookupStore(r.flowStores, env)
}

func (r *Registry) registerStore(
	stores map[string]store.Store, env string, s store.Store,
) error {
	if s == nil {
		return ErrNilStore
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stores[env] = s
	return nil
}

func (r *Registry) lookupStore(
	stores map[string]store.Store, env string,
) (store.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := stores[env]
	return s, ok
}
