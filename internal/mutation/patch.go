package mutation

import (
	"slices"
	"strings"

	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

// Patch helpers. Cached values are copy-on-write: every helper returns a
// fresh value (cloned slice for pages) so concurrent readers never observe a
// half-applied update.

// patchUserCopies applies fn to every cached copy of the user: the single
// profile entry and each user-list page containing them.
func (h *Handlers) patchUserCopies(username string, fn func(model.User) model.User) {
	h.store.ReconcileEntity(cache.UserRef(username), func(_ string, v any) any {
		return patchUserValue(v, username, fn)
	})
	// The profile entry may predate any ref registration.
	cache.PatchValue(h.store, cache.ProfileKey(username), fn)
}

func patchUserValue(v any, username string, fn func(model.User) model.User) any {
	switch t := v.(type) {
	case model.User:
		if strings.EqualFold(t.Username, username) {
			return fn(t)
		}
	case model.Page[model.User]:
		out := t
		out.Data = slices.Clone(t.Data)
		for i, u := range out.Data {
			if strings.EqualFold(u.Username, username) {
				out.Data[i] = fn(u)
			}
		}
		return out
	}
	return v
}

// patchThreadCopies applies fn to the thread detail entry and every cached
// thread-list page containing the id.
func (h *Handlers) patchThreadCopies(id string, fn func(model.Thread) model.Thread) {
	h.store.ReconcileEntity(cache.ThreadRef(id), func(_ string, v any) any {
		return patchThreadValue(v, id, fn)
	})
	cache.PatchValue(h.store, cache.ThreadKey(id), fn)
}

func patchThreadValue(v any, id string, fn func(model.Thread) model.Thread) any {
	switch t := v.(type) {
	case model.Thread:
		if t.ID == id {
			return fn(t)
		}
	case model.Page[model.Thread]:
		out := t
		out.Data = slices.Clone(t.Data)
		for i, th := range out.Data {
			if th.ID == id {
				out.Data[i] = fn(th)
			}
		}
		return out
	}
	return v
}

// removeThreadFromPages drops id from the cached pages under the given list
// prefixes, shrinking their totals. 无关列表的 Total 不能动，分页会错。
func (h *Handlers) removeThreadFromPages(id string, prefixes []string) {
	h.store.PatchMany(
		func(key string) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(key, p) {
					return true
				}
			}
			return false
		},
		func(_ string, v any) any {
			page, ok := v.(model.Page[model.Thread])
			if !ok {
				return v
			}
			return dropThread(page, id)
		},
	)
}

func dropThread(page model.Page[model.Thread], id string) model.Page[model.Thread] {
	idx := slices.IndexFunc(page.Data, func(t model.Thread) bool { return t.ID == id })
	out := page
	out.Data = slices.Clone(page.Data)
	if idx >= 0 {
		out.Data = slices.Delete(out.Data, idx, idx+1)
	}
	if out.Total > 0 {
		out.Total--
	}
	return out
}

// patchOwnProfile patches the signed-in user's profile entry.
func (h *Handlers) patchOwnProfile(fn func(model.User) model.User) {
	if me := h.self(); me != "" {
		cache.PatchValue(h.store, cache.ProfileKey(me), fn)
	}
}

// withGated applies fn to the gated fields of an owner-visible profile.
// Profiles without gated access are returned unchanged.
func withGated(u model.User, fn func(g GF) GF) model.User {
	g, ok := u.Gated()
	if !ok {
		return u
	}
	next := fn(*g)
	return u.WithGated(&next)
}

// GF keeps the helper signatures short.
type GF = model.GatedFields
