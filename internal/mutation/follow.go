package mutation

import (
	"context"

	"github.com/d60-Lab/reveal-client/internal/model"
)

// Follow creates the edge current-user -> username and fans the new follower
// count out to every cached copy of the target. The count moves only on a
// flag transition, so re-applying the same patch cannot double-count.
func (h *Handlers) Follow(ctx context.Context, username string) error {
	if err := h.api.Follow(ctx, username); err != nil {
		return err
	}
	h.patchUserCopies(username, func(u model.User) model.User {
		if !u.IsFollowedByCurrentUser {
			u.IsFollowedByCurrentUser = true
			u.FollowersCount++
		}
		return u
	})
	h.patchOwnProfile(func(u model.User) model.User {
		u.FollowingCount++
		return u
	})
	return nil
}

// Unfollow removes the edge, flooring the follower count at zero.
func (h *Handlers) Unfollow(ctx context.Context, username string) error {
	if err := h.api.Unfollow(ctx, username); err != nil {
		return err
	}
	h.patchUserCopies(username, func(u model.User) model.User {
		if u.IsFollowedByCurrentUser {
			u.IsFollowedByCurrentUser = false
			if u.FollowersCount > 0 {
				u.FollowersCount--
			}
		}
		return u
	})
	h.patchOwnProfile(func(u model.User) model.User {
		if u.FollowingCount > 0 {
			u.FollowingCount--
		}
		return u
	})
	return nil
}
