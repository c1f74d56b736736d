package mutation

import (
	"context"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

// UpdateProfile saves profile edits. The server returns the owner view, which
// replaces the cached own profile wholesale; user-list snapshots only carry
// public fields, so they refetch instead of being patched.
func (h *Handlers) UpdateProfile(ctx context.Context, p api.UpdateProfilePayload) (*model.User, error) {
	u, err := h.api.UpdateProfile(ctx, p)
	if err != nil {
		return nil, err
	}
	h.store.WriteWithRefs(cache.ProfileKey(u.Username), *u, cache.UserRef(u.Username))
	h.store.Invalidate(cache.UserListPrefix)
	return u, nil
}
