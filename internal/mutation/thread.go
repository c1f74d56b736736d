package mutation

import (
	"context"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

// LikeThread marks the thread liked by the current viewer across every
// cached copy. The flag is absolute; the count moves only on a transition
// and never below zero.
func (h *Handlers) LikeThread(ctx context.Context, id string) error {
	if err := h.api.LikeThread(ctx, id); err != nil {
		return err
	}
	h.patchThreadCopies(id, func(t model.Thread) model.Thread {
		if !t.IsLikedByCurrentUser {
			t.IsLikedByCurrentUser = true
			t.LikeCount++
		}
		return t
	})
	return nil
}

func (h *Handlers) UnlikeThread(ctx context.Context, id string) error {
	if err := h.api.UnlikeThread(ctx, id); err != nil {
		return err
	}
	h.patchThreadCopies(id, func(t model.Thread) model.Thread {
		if t.IsLikedByCurrentUser {
			t.IsLikedByCurrentUser = false
			if t.LikeCount > 0 {
				t.LikeCount--
			}
		}
		return t
	})
	return nil
}

// CreateThread posts a new thread. Ordering of feeds is server-side, so list
// caches are invalidated instead of patched. A reply bumps the parent's
// reply count in place.
func (h *Handlers) CreateThread(ctx context.Context, p api.CreateThreadPayload) (*model.Thread, error) {
	th, err := h.api.CreateThread(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.ParentID != "" {
		h.patchThreadCopies(p.ParentID, func(t model.Thread) model.Thread {
			t.ReplyCount++
			return t
		})
	}
	h.store.Invalidate(cache.ThreadListPrefix)
	return th, nil
}

func (h *Handlers) UpdateThread(ctx context.Context, id, content string) (*model.Thread, error) {
	th, err := h.api.UpdateThread(ctx, id, api.UpdateThreadPayload{Content: content})
	if err != nil {
		return nil, err
	}
	h.patchThreadCopies(id, func(model.Thread) model.Thread { return *th })
	return th, nil
}

// DeleteThread removes the thread from the detail cache and from the cached
// pages of the lists it belongs to: the feed, the author's thread list and,
// for a reply, the parent's replies pages. Other lists never contained it,
// so their totals stay put.
func (h *Handlers) DeleteThread(ctx context.Context, id string) error {
	th, cached := cache.Get[model.Thread](h.store, cache.ThreadKey(id))
	if err := h.api.DeleteThread(ctx, id); err != nil {
		return err
	}
	if !cached {
		// 详情没缓存就不知道归属哪些列表，只能整体失效
		h.store.Invalidate(cache.ThreadListPrefix)
		h.store.Drop(cache.ThreadKey(id))
		return nil
	}
	prefixes := []string{cache.FeedPrefix}
	if th.Author != nil {
		prefixes = append(prefixes, cache.UserThreadsPrefix(th.Author.Username))
	}
	if th.ParentID != "" {
		prefixes = append(prefixes, cache.RepliesPrefix(th.ParentID))
		h.patchThreadCopies(th.ParentID, func(p model.Thread) model.Thread {
			if p.ReplyCount > 0 {
				p.ReplyCount--
			}
			return p
		})
	}
	h.removeThreadFromPages(id, prefixes)
	h.store.Drop(cache.RepliesPrefix(id))
	h.store.Drop(cache.ThreadKey(id))
	return nil
}
