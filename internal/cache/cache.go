// Copyright 2025 Bidwell Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides lazy TTL memoization for the pricing engine.
//
// Each key holds one value with its fetch timestamp. An expired entry is
// only recomputed on the next access, never by a background timer, and a
// failed fetch stores nothing so it cannot poison later calls within the
// TTL window. Concurrent misses for the same key collapse into a single
// in-flight fetch whose result fans out to all waiters.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is a thread-safe TTL memoization store.
// The zero value is not usable; use NewStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	// now is the clock; replaceable in tests.
	now func() time.Time

	// onLookup, if set, is called for every access with the key and
	// whether it was served from a fresh entry. Used for metrics.
	onLookup func(key string, hit bool)
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// expired reports whether the entry's age exceeds ttl at time now.
// An entry exactly at its TTL is still fresh.
func (e entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.fetchedAt) > ttl
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the store's clock. Tests use this to step time
// across TTL boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLookupHook registers a callback invoked once per access with the
// key and whether the access hit a fresh entry.
func WithLookupHook(fn func(key string, hit bool)) Option {
	return func(s *Store) { s.onLookup = fn }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key builds a normalized cache key from its parts.
// Parts are lowercased and joined with ":" for case-insensitive lookups.
//
// Example: Key("us-east-1", "r3.2xlarge", "spot") -> "us-east-1:r3.2xlarge:spot"
func Key(parts ...string) string {
	lowered := make([]string, len(parts))
	for i, p := range parts {
		lowered[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(lowered, ":")
}

// GetOrFetch returns the cached value for key if it is younger than ttl,
// otherwise calls fetch, stores the result with the current timestamp,
// and returns it. All errors come from fetch; a fetch error is returned
// to every waiter and leaves the store unchanged.
//
// Each key's TTL clock is independent: one entry expiring never
// invalidates another.
func GetOrFetch[T any](
	ctx context.Context,
	s *Store,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok := s.lookup(key, ttl); ok {
		return v.(T), nil
	}

	// Collapse concurrent misses: one fetch per key, result shared by
	// every caller that arrived while it was in flight.
	v, err, _ := s.group.Do(key, func() (any, error) {
		// A waiter that lost the race to a just-completed fetch finds a
		// fresh entry here and skips the external call entirely.
		if v, ok := s.peek(key, ttl); ok {
			return v, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.entries[key] = entry{value: value, fetchedAt: s.now()}
		s.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		// Two value kinds sharing one key; a programming error.
		var zero T
		return zero, fmt.Errorf("cache entry %q holds %T, not %T", key, v, zero)
	}
	return typed, nil
}

// lookup reads a fresh entry and reports the access to the lookup hook.
func (s *Store) lookup(key string, ttl time.Duration) (any, bool) {
	v, ok := s.peek(key, ttl)
	if s.onLookup != nil {
		s.onLookup(key, ok)
	}
	return v, ok
}

// peek reads a fresh entry without touching the lookup hook.
func (s *Store) peek(key string, ttl time.Duration) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now(), ttl) {
		return nil, false
	}
	return e.value, true
}

// Len returns the number of stored entries, fresh or expired.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Age returns how old the entry for key is, and whether it exists.
func (s *Store) Age(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return s.now().Sub(e.fetchedAt), true
}
