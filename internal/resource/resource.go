// Package resource binds each REST resource to one cache key, giving
// consumers typed read access plus mutation and revalidation on the shared
// store.
//
// Every resource is parameterized by the current authenticated user id. An
// empty user id yields an empty cache key: no network traffic happens and no
// cached value from another session can be observed.
//
// Materialized values default to an empty/zero value while loading so
// consumers never handle a missing value.
package resource

import (
	"context"

	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/types"
)

// Resource is one cache key with typed access.
type Resource[T any] struct {
	store *cache.Store
	key   string
	zero  T
}

func newResource[T any](store *cache.Store, key string, zero T, fetch func(ctx context.Context) (T, error)) *Resource[T] {
	r := &Resource[T]{store: store, key: key, zero: zero}
	if key != "" {
		store.Bind(key, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	}
	return r
}

// Key returns the cache key this resource is bound to. Empty when
// unauthenticated.
func (r *Resource[T]) Key() string { return r.key }

// Get returns the materialized value, fetching on first access. While
// loading, or when unauthenticated, the zero value is returned.
func (r *Resource[T]) Get(ctx context.Context) (T, error) {
	v, err := r.store.Read(ctx, r.key)
	if err != nil {
		return r.zero, err
	}
	t, ok := v.(T)
	if !ok {
		return r.zero, nil
	}
	return t, nil
}

// Peek returns the cached value without fetching, defaulted to zero.
func (r *Resource[T]) Peek() T {
	v, ok := r.store.Peek(r.key)
	if !ok {
		return r.zero
	}
	t, ok := v.(T)
	if !ok {
		return r.zero
	}
	return t
}

// Loaded reports whether the cache holds a value for this resource.
func (r *Resource[T]) Loaded() bool {
	_, ok := r.store.Peek(r.key)
	return ok
}

// Err returns the last fetch error, if any.
func (r *Resource[T]) Err() error { return r.store.Err(r.key) }

// IsValidating reports whether a background refetch is in flight.
func (r *Resource[T]) IsValidating() bool { return r.store.IsValidating(r.key) }

// Mutate applies a typed optimistic patch to this resource's cache entry.
// The updater sees the zero value when the entry has never loaded. When
// revalidate is true a background refetch replaces the patch on arrival.
func (r *Resource[T]) Mutate(updater func(current T) T, revalidate bool) {
	if updater == nil {
		r.store.Mutate(r.key, nil, revalidate)
		return
	}
	r.store.Mutate(r.key, func(current any) any {
		t, ok := current.(T)
		if !ok {
			t = r.zero
		}
		return updater(t)
	}, revalidate)
}

// Revalidate forces a background refetch with no local change.
func (r *Resource[T]) Revalidate() { r.store.Revalidate(r.key) }

// The concrete constructors below mirror the REST surface one-to-one; each
// pins the key derivation and fetch in a single place.

// Tasks binds the full task list for userID.
func Tasks(store *cache.Store, api *client.Client, userID string) *Resource[[]types.Task] {
	return newResource(store, cache.TasksKey(userID), []types.Task{},
		func(ctx context.Context) ([]types.Task, error) {
			return api.Tasks(ctx, userID)
		})
}

// Today binds the today's-tasks view for userID and limit.
func Today(store *cache.Store, api *client.Client, userID string, limit int) *Resource[types.TodayTasks] {
	return newResource(store, cache.TodayKey(userID, limit), types.TodayTasks{Tasks: []types.Task{}},
		func(ctx context.Context) (types.TodayTasks, error) {
			return api.TodayTasks(ctx, limit)
		})
}

// Stats binds the aggregate task counts for userID.
func Stats(store *cache.Store, api *client.Client, userID string) *Resource[types.TaskStats] {
	return newResource(store, cache.StatsKey(userID), types.TaskStats{},
		func(ctx context.Context) (types.TaskStats, error) {
			return api.Stats(ctx)
		})
}

// Categories binds the category list for userID.
func Categories(store *cache.Store, api *client.Client, userID string) *Resource[[]types.Category] {
	return newResource(store, cache.CategoriesKey(userID), []types.Category{},
		func(ctx context.Context) ([]types.Category, error) {
			return api.Categories(ctx)
		})
}

// CategoryStats binds the per-category counts for userID.
func CategoryStats(store *cache.Store, api *client.Client, userID string) *Resource[[]types.CategoryStat] {
	return newResource(store, cache.CategoryStatsKey(userID), []types.CategoryStat{},
		func(ctx context.Context) ([]types.CategoryStat, error) {
			return api.CategoryStats(ctx)
		})
}

// Preferences binds the preferences record for userID.
func Preferences(store *cache.Store, api *client.Client, userID string) *Resource[types.UserPreferences] {
	return newResource(store, cache.PreferencesKey(userID), types.DefaultPreferences(),
		func(ctx context.Context) (types.UserPreferences, error) {
			return api.Preferences(ctx)
		})
}

// Conversations binds the chat conversation list for userID.
func Conversations(store *cache.Store, api *client.Client, userID string) *Resource[[]types.Conversation] {
	return newResource(store, cache.ConversationsKey(userID), []types.Conversation{},
		func(ctx context.Context) ([]types.Conversation, error) {
			return api.Conversations(ctx)
		})
}

// Messages binds the message list of one conversation for userID.
func Messages(store *cache.Store, api *client.Client, userID string, conversationID int) *Resource[[]types.Message] {
	return newResource(store, cache.MessagesKey(userID, conversationID), []types.Message{},
		func(ctx context.Context) ([]types.Message, error) {
			return api.Messages(ctx, conversationID)
		})
}
