package mutation

import (
	"context"
	"slices"
	"strings"

	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

// SendRevealRequest creates a PENDING request towards username. The sent
// list is invalidated rather than patched: the server decides ordering.
func (h *Handlers) SendRevealRequest(ctx context.Context, username string) (*model.RevealRequest, error) {
	req, err := h.api.SendRevealRequest(ctx, username)
	if err != nil {
		return nil, err
	}
	h.patchUserCopies(username, func(u model.User) model.User {
		u.RevealRequestStatus = req.Status
		return u
	})
	h.store.Invalidate(cache.SentRequestsPrefix)
	return req, nil
}

// DeleteRevealRequestByUserName withdraws the viewer's pending request. The
// server-returned status replaces the cached one, and the request disappears
// from every cached sent page.
func (h *Handlers) DeleteRevealRequestByUserName(ctx context.Context, username string) (*model.RevealRequest, error) {
	req, err := h.api.DeleteRevealRequestByUserName(ctx, username)
	if err != nil {
		return nil, err
	}
	h.patchUserCopies(username, func(u model.User) model.User {
		u.RevealRequestStatus = req.Status
		return u
	})
	h.store.PatchMany(
		func(key string) bool { return strings.HasPrefix(key, cache.SentRequestsPrefix) },
		func(_ string, v any) any {
			page, ok := v.(model.Page[model.RevealRequest])
			if !ok {
				return v
			}
			idx := slices.IndexFunc(page.Data, func(r model.RevealRequest) bool {
				return strings.EqualFold(r.Requestee.Username, username)
			})
			if idx < 0 {
				return v
			}
			out := page
			out.Data = slices.Delete(slices.Clone(page.Data), idx, idx+1)
			if out.Total > 0 {
				out.Total--
			}
			return out
		},
	)
	return req, nil
}

// RespondToRevealRequest decides a pending incoming request. Every cached
// incoming page holding the request is replaced with the decided row; an
// acceptance creates a standing grant, so the revealed list and the pending
// badge are invalidated for refetch.
func (h *Handlers) RespondToRevealRequest(ctx context.Context, requestID string, decision model.Decision) (*model.RevealRequest, error) {
	req, err := h.api.RespondToRevealRequest(ctx, requestID, decision)
	if err != nil {
		return nil, err
	}
	h.store.PatchMany(
		func(key string) bool { return strings.HasPrefix(key, cache.IncomingRequestsPrefix) },
		func(_ string, v any) any {
			page, ok := v.(model.Page[model.RevealRequest])
			if !ok {
				return v
			}
			out := page
			out.Data = slices.Clone(page.Data)
			for i, r := range out.Data {
				if r.ID == req.ID {
					out.Data[i] = *req
				}
			}
			return out
		},
	)
	h.store.Invalidate(cache.RevealedByMePrefix)
	h.store.Invalidate(cache.PendingCountKey)
	return req, nil
}

// RevokeProfileReveal deletes the standing grant towards username, removes
// it from every cached revealed-by-me page and lets related request views
// refetch.
func (h *Handlers) RevokeProfileReveal(ctx context.Context, username string) error {
	status, err := h.api.RevokeProfileReveal(ctx, username)
	if err != nil {
		return err
	}
	h.store.PatchMany(
		func(key string) bool { return strings.HasPrefix(key, cache.RevealedByMePrefix) },
		func(_ string, v any) any {
			page, ok := v.(model.Page[model.ProfileReveal])
			if !ok {
				return v
			}
			idx := slices.IndexFunc(page.Data, func(r model.ProfileReveal) bool {
				return strings.EqualFold(r.RevealedTo.Username, username)
			})
			out := page
			out.Data = slices.Clone(page.Data)
			if idx >= 0 {
				out.Data = slices.Delete(out.Data, idx, idx+1)
			}
			if out.Total > 0 {
				out.Total--
			}
			return out
		},
	)
	h.patchUserCopies(username, func(u model.User) model.User {
		u.RevealRequestStatus = status
		return u
	})
	h.store.Invalidate(cache.IncomingRequestsPrefix)
	h.store.Invalidate(cache.SentRequestsPrefix)
	return nil
}
