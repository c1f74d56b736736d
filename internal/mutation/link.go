package mutation

import (
	"context"
	"slices"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

func (h *Handlers) CreateLink(ctx context.Context, title, url string) (*model.Link, error) {
	link, err := h.api.CreateLink(ctx, api.LinkPayload{Title: title, URL: url})
	if err != nil {
		return nil, err
	}
	cache.PatchValue(h.store, cache.OwnLinksKey, func(links []model.Link) []model.Link {
		return append(slices.Clone(links), *link)
	})
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.Links = append(slices.Clone(g.Links), *link)
			return g
		})
	})
	return link, nil
}

func (h *Handlers) UpdateLink(ctx context.Context, id, title, url string) (*model.Link, error) {
	link, err := h.api.UpdateLink(ctx, id, api.LinkPayload{Title: title, URL: url})
	if err != nil {
		return nil, err
	}
	replace := func(links []model.Link) []model.Link {
		out := slices.Clone(links)
		for i, l := range out {
			if l.ID == id {
				out[i] = *link
			}
		}
		return out
	}
	cache.PatchValue(h.store, cache.OwnLinksKey, replace)
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.Links = replace(g.Links)
			return g
		})
	})
	return link, nil
}

func (h *Handlers) DeleteLink(ctx context.Context, id string) error {
	if err := h.api.DeleteLink(ctx, id); err != nil {
		return err
	}
	remove := func(links []model.Link) []model.Link {
		return slices.DeleteFunc(slices.Clone(links), func(l model.Link) bool { return l.ID == id })
	}
	cache.PatchValue(h.store, cache.OwnLinksKey, remove)
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.Links = remove(g.Links)
			return g
		})
	})
	return nil
}
