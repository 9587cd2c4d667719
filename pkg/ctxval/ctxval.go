// Package ctxval attaches a mutable, goroutine-safe value bag to a context.
// Values set deep in a call chain are visible to every holder of the wrapped
// context, e.g. an auth middleware can publish the user id that the access
// logger reads once the handler returns.
package ctxval

import (
	"context"
	"sync"
)

type bagKey struct{}

type bag struct {
	mu     sync.RWMutex
	values map[any]any
}

// Wrap returns ctx with a value bag attached. Wrapping twice is a no-op.
func Wrap(ctx context.Context) context.Context {
	if _, ok := bagFrom(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, bagKey{}, &bag{values: make(map[any]any)})
}

// Set stores v under k. It reports false when ctx was never wrapped.
func Set[K comparable, V any](ctx context.Context, k K, v V) bool {
	b, ok := bagFrom(ctx)
	if !ok {
		return false
	}
	b.mu.Lock()
	b.values[k] = v
	b.mu.Unlock()
	return true
}

func Get[K comparable, V any](ctx context.Context, k K) (V, bool) {
	b, ok := bagFrom(ctx)
	if !ok {
		return *new(V), false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[k].(V)
	return v, ok
}

// Update replaces the value under k with fn(current) atomically.
// current is the zero value when k is missing.
func Update[K comparable, V any](ctx context.Context, k K, fn func(current V) V) bool {
	b, ok := bagFrom(ctx)
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, _ := b.values[k].(V)
	b.values[k] = fn(cur)
	return true
}

func bagFrom(ctx context.Context) (*bag, bool) {
	b, ok := ctx.Value(bagKey{}).(*bag)
	return b, ok
}
