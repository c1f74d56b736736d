// Package mutation holds one handler per state-changing action. Every
// handler performs the remote call first and patches cached views strictly
// after server confirmation; a failed call leaves the cache untouched, so no
// rollback path exists. Handlers never retry on their own.
package mutation

import (
	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
)

// Handlers binds the remote client to the cache store. self reports the
// signed-in username, used to locate the current-profile cache entry.
type Handlers struct {
	api   *api.Client
	store *cache.Store
	self  func() string
}

func New(c *api.Client, store *cache.Store, self func() string) *Handlers {
	if self == nil {
		self = func() string { return "" }
	}
	return &Handlers{api: c, store: store, self: self}
}
