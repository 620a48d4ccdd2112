package store

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"

	"github.com/kode4food/reflector/pkg/api"
)

type (
	// Memory is a bounded in-memory Store. Records are listed newest first,
	// and the least recently saved record is evicted when the store is full
	Memory struct {
		records map[string]*list.Element
		lru     *list.List
		maxSize int
		mu      sync.RWMutex
	}

	memoryEntry struct {
		key   string
		value json.RawMessage
	}
)

// DefaultMemorySize bounds a Memory store created with a non-positive size
const DefaultMemorySize = 1000

var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory store holding at most maxSize records
func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = DefaultMemorySize
	}
	return &Memory{
		records: map[string]*list.Element{},
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Load returns the record saved under id
func (m *Memory) Load(_ context.Context, id string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elem, ok := m.records[id]
	if !ok {
		return nil, NotFound(id)
	}
	return elem.Value.(*memoryEntry).value, nil
}

// Save stores rec under id, making it the newest record
func (m *Memory) Save(_ context.Context, id string, rec json.RawMessage) error {
	if id == "" {
		return ErrEmptyID
	}
	value := append(json.RawMessage(nil), rec...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.records[id]; ok {
		elem.Value.(*memoryEntry).value = value
		m.lru.MoveToFront(elem)
		return nil
	}

	entry := &memoryEntry{key: id, value: value}
	m.records[id] = m.lru.PushFront(entry)

	if m.lru.Len() > m.maxSize {
		m.evictLast()
	}
	return nil
}

// List returns a page of records, newest first
func (m *Memory) List(
	_ context.Context, params *api.ListParams,
) (*api.ListResult, error) {
	limit, err := ResolveLimit(params)
	if err != nil {
		return nil, err
	}
	offset, err := DecodeOffset(params.Token())
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	end := PageEnd(offset, limit)
	res := &api.ListResult{Items: []json.RawMessage{}}
	idx := 0
	for elem := m.lru.Front(); elem != nil; elem = elem.Next() {
		if idx >= end {
			break
		}
		if idx >= offset {
			res.Items = append(res.Items, elem.Value.(*memoryEntry).value)
		}
		idx++
	}
	res.ContinuationToken = EncodeOffset(end, m.lru.Len())
	return res, nil
}

// Len returns the number of records held
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lru.Len()
}

func (m *Memory) evictLast() {
	back := m.lru.Back()
	if back != nil {
		m.lru.Remove(back)
		delete(m.records, back.Value.(*memoryEntry).key)
	}
}
