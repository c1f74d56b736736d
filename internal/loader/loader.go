// Package loader guarantees a screen's data is resolvable before first
// render. A warm cache entry is served without touching the network; a miss
// fetches once, and any failure turns into a redirect to a safe fallback
// route instead of an escaping error.
package loader

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/pkg/logger"
)

const (
	RouteHome     = "/"
	RouteNotFound = "/not-found"
)

// Notifier surfaces a transient, user-visible message.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Result is the outcome of one loader invocation: either Data bound to the
// parameters used, or a Redirect target. FromCache marks a warm hit.
type Result[T any] struct {
	Data      T
	FromCache bool
	Redirect  string
}

// Redirected reports whether the invocation ended in navigation away.
func (r Result[T]) Redirected() bool { return r.Redirect != "" }

// Loaders wires route loaders to the store and remote client.
type Loaders struct {
	api      *api.Client
	store    *cache.Store
	notify   Notifier
	pageSize int
}

func New(c *api.Client, store *cache.Store, notify Notifier, pageSize int) *Loaders {
	if notify == nil {
		notify = NotifierFunc(func(string) {})
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Loaders{api: c, store: store, notify: notify, pageSize: pageSize}
}

// PageSize returns the page size loaders request by default.
func (l *Loaders) PageSize() int { return l.pageSize }

// load is the uniform loader algorithm. The one-shot subscription taken for
// the fetch is released on every exit path.
func load[T any](ctx context.Context, l *Loaders, key, fallback string, fetch func(context.Context) (T, error), refs func(T) []cache.Ref) Result[T] {
	if v, ok := cache.Get[T](l.store, key); ok && !l.store.Stale(key) {
		return Result[T]{Data: v, FromCache: true}
	}

	release := l.store.Subscribe(key)
	defer release()

	v, err := fetch(ctx)
	if err != nil {
		logger.Warn("loader fetch failed", zap.String("key", key), zap.Error(err))
		l.notify.Notify(api.AsError(err).Message)
		return Result[T]{Redirect: fallback}
	}

	if refs != nil {
		l.store.WriteWithRefs(key, v, refs(v)...)
	} else {
		l.store.Write(key, v)
	}
	l.store.RegisterRefetch(key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return Result[T]{Data: v}
}
