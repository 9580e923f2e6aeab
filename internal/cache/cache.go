// Package cache implements the keyed client-side cache behind taskdeck's
// resource views.
//
// The store maps deterministic string keys (see keys.go) to the last-known
// server value for one logical resource. Two callers asking for the same
// logical resource resolve to the same key and therefore share one entry,
// which is what makes cross-view consistency possible.
//
// Mutation follows stale-while-revalidate semantics:
//   - Mutate(key, updater, false) applies a local optimistic patch and leaves
//     it standing until some other path revalidates it.
//   - Mutate(key, updater, true) additionally kicks off a background refetch
//     whose result replaces the entry when it resolves.
//   - Revalidate(key) forces a background refetch with no local change. This
//     is the standard rollback primitive: the server value always wins over
//     an optimistic guess.
//
// Within one key, updaters are applied strictly in call order, each seeing
// the previous one's result. Overlapping background fetches are resolved
// last-to-complete-wins; a superseded fetch's result is simply applied when
// it arrives, which is safe because a subsequent full refetch is idempotent.
package cache

import (
	"context"
	"fmt"
	"sync"
)

// FetchFunc retrieves the authoritative server value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Store is a process-wide, key-addressed cache of server responses.
// A Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	fetches map[string]FetchFunc
	subs    map[int]func(key string)
	nextSub int
	pending sync.WaitGroup
}

type entry struct {
	value      any
	loaded     bool
	validating int
	err        error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
		fetches: make(map[string]FetchFunc),
		subs:    make(map[int]func(string)),
	}
}

// Bind registers the fetch function used to (re)validate key. Resources call
// this once when they attach to the store; rebinding the same key replaces
// the previous fetcher.
func (s *Store) Bind(key string, fetch FetchFunc) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[key] = fetch
}

// Read returns the current value for key, fetching it synchronously if the
// entry is absent. An empty key means "do not fetch" (unauthenticated) and
// reads as nil with no network traffic.
func (s *Store) Read(ctx context.Context, key string) (any, error) {
	if key == "" {
		return nil, nil
	}

	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.loaded {
		v := e.value
		s.mu.Unlock()
		return v, nil
	}
	fetch, ok := s.fetches[key]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no fetcher bound for key %q", key)
	}

	value, err := fetch(ctx)

	s.mu.Lock()
	e := s.ensureEntry(key)
	if err != nil {
		e.err = err
		s.mu.Unlock()
		return nil, err
	}
	e.value = value
	e.loaded = true
	e.err = nil
	s.mu.Unlock()

	s.notify(key)
	return value, nil
}

// Peek returns the cached value without triggering a fetch.
// The second return reports whether the entry has been loaded.
func (s *Store) Peek(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.loaded {
		return nil, false
	}
	return e.value, true
}

// Err returns the last fetch error recorded for key, if any.
func (s *Store) Err(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.err
	}
	return nil
}

// IsValidating reports whether a background fetch is in flight for key.
func (s *Store) IsValidating(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.validating > 0
}

// Mutate applies updater to the entry for key immediately and notifies
// subscribers. A nil updater leaves the local value untouched. If revalidate
// is true, a background fetch is started; its result replaces the entry when
// it resolves, whether or not a local patch was applied.
//
// Updaters receive the current cached value (nil if the entry has never
// loaded) and must return the replacement value. They run under the store
// lock and must not block.
func (s *Store) Mutate(key string, updater func(current any) any, revalidate bool) {
	if key == "" {
		return
	}

	changed := false
	s.mu.Lock()
	if updater != nil {
		e := s.ensureEntry(key)
		e.value = updater(e.value)
		e.loaded = true
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.notify(key)
	}
	if revalidate {
		s.revalidate(key)
	}
}

// Revalidate forces a background refetch of key with no immediate local
// change. The entry is replaced when the fetch resolves.
func (s *Store) Revalidate(key string) {
	if key == "" {
		return
	}
	s.revalidate(key)
}

func (s *Store) revalidate(key string) {
	s.mu.Lock()
	fetch, ok := s.fetches[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	e := s.ensureEntry(key)
	e.validating++
	s.mu.Unlock()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		value, err := fetch(context.Background())

		s.mu.Lock()
		e := s.ensureEntry(key)
		e.validating--
		if err != nil {
			e.err = err
			s.mu.Unlock()
			s.notify(key)
			return
		}
		e.value = value
		e.loaded = true
		e.err = nil
		s.mu.Unlock()

		s.notify(key)
	}()
}

// Wait blocks until every background revalidation started so far has
// settled. Used by consumers that need converged state, and by tests.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Subscribe registers fn to be called with the key of every entry that
// changes. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(key string)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Invalidate drops the entry for key entirely. The next Read performs a
// fresh fetch. Used on sign-out so no stale data leaks across sessions.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	s.notify(key)
}

// Clear drops every entry and binding. Used on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.fetches = make(map[string]FetchFunc)
	s.mu.Unlock()
}

func (s *Store) ensureEntry(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) notify(key string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}
