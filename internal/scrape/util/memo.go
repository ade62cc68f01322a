package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ListMemo keeps a company's full upstream list for boards that are paged locally, so
// moving between pages does not refetch everything. Concurrent loads of one key share
// a single request.
type ListMemo[T any] struct {
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]memoEntry[T]
	group   singleflight.Group
	now     func() time.Time
}

type memoEntry[T any] struct {
	items []T
	at    time.Time
}

func NewListMemo[T any](ttl time.Duration) *ListMemo[T] {
	return &ListMemo[T]{TTL: ttl, entries: map[string]memoEntry[T]{}, now: time.Now}
}

// Get returns the memoized list for key and the time it was fetched, calling load on a
// miss. Failed loads are not kept. Expired entries are dropped whenever a new list is stored.
func (m *ListMemo[T]) Get(ctx context.Context, key string, load func(ctx context.Context) ([]T, error)) ([]T, time.Time, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !m.fresh(e) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if ok {
		return e.items, e.at, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		fresh := memoEntry[T]{items: items, at: m.now()}
		m.mu.Lock()
		m.sweepLocked()
		m.entries[key] = fresh
		m.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	got := v.(memoEntry[T])
	return got.items, got.at, nil
}

func (m *ListMemo[T]) fresh(e memoEntry[T]) bool {
	return m.now().Sub(e.at) < m.TTL
}

func (m *ListMemo[T]) sweepLocked() {
	for k, e := range m.entries {
		if !m.fresh(e) {
			delete(m.entries, k)
		}
	}
}

// Len is the number of lists held, expired or not.
func (m *ListMemo[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Forget drops every key, used when a company's cache is invalidated.
func (m *ListMemo[T]) Forget() {
	m.mu.Lock()
	m.entries = map[string]memoEntry[T]{}
	m.mu.Unlock()
}
