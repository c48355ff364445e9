// Package store exposes the persistent key-value storage used for statistics
// and settings: JSON values under string keys, with change notifications.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/ecowatch/internal/db"
)

// Storage keys.
const (
	KeyTotalRequests = "totalRequests"
	KeyTotalTokens   = "totalTokens"
	KeyTotalAvoided  = "totalAvoided"
	KeyDailyStats    = "dailyStats"
	KeySettings      = "settings"
)

// KV is the storage contract the core depends on.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, items map[string]any) error
}

// Change describes one key's transition. A nil side means absent.
type Change struct {
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// ChangeFunc receives every committed change set.
type ChangeFunc func(changes map[string]Change)

// Store is the SQLite-backed KV.
type Store struct {
	database *db.DB

	mu     sync.Mutex
	nextID int
	subs   map[int]ChangeFunc
}

// New creates a Store over an already migrated database.
func New(database *db.DB) *Store {
	return &Store{database: database, subs: make(map[int]ChangeFunc)}
}

// Get returns the raw JSON for each present key. Absent keys are omitted.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	vals, err := s.database.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("store.Get: %w", err)
	}
	out := make(map[string]json.RawMessage, len(vals))
	for k, v := range vals {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

// Set stores every item as JSON in one transaction, then notifies subscribers
// of the keys whose value actually changed.
func (s *Store) Set(ctx context.Context, items map[string]any) error {
	encoded := make(map[string]string, len(items))
	for k, v := range items {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("store.Set: marshal %q: %w", k, err)
		}
		encoded[k] = string(b)
	}
	old, err := s.database.Put(ctx, encoded)
	if err != nil {
		return fmt.Errorf("store.Set: %w", err)
	}

	changes := make(map[string]Change)
	for k, v := range encoded {
		prev, had := old[k]
		if had && prev == v {
			continue
		}
		c := Change{NewValue: json.RawMessage(v)}
		if had {
			c.OldValue = json.RawMessage(prev)
		}
		changes[k] = c
	}
	s.notify(changes)
	return nil
}

// Remove deletes keys and notifies subscribers of those that existed.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	old, err := s.database.Delete(ctx, keys...)
	if err != nil {
		return fmt.Errorf("store.Remove: %w", err)
	}
	changes := make(map[string]Change, len(old))
	for k, v := range old {
		changes[k] = Change{OldValue: json.RawMessage(v)}
	}
	s.notify(changes)
	return nil
}

// Subscribe registers fn for change notifications. The returned func unsubscribes.
func (s *Store) Subscribe(fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(changes map[string]Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(changes)
	}
}
