package mutation

import (
	"context"
	"io"
	"slices"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

// PhotoSlot names the profile slot an upload should land in.
type PhotoSlot int

const (
	SlotNone PhotoSlot = iota
	SlotPublic
	SlotPrivate
)

// UploadPhoto validates, uploads, then optionally binds the photo to a
// profile slot. The photo enters the cached own-photos list as soon as the
// upload lands; a failed slot bind returns the photo alongside the error.
func (h *Handlers) UploadPhoto(ctx context.Context, filename string, size int64, r io.Reader, slot PhotoSlot) (*model.Photo, error) {
	if err := api.ValidatePhoto(filename, size); err != nil {
		return nil, err
	}
	photo, err := h.api.UploadPhoto(ctx, filename, size, r)
	if err != nil {
		return nil, err
	}
	// 上传已经落库，先补进缓存；槽位绑定失败也不能丢这张照片
	cache.PatchValue(h.store, cache.OwnPhotosKey, func(photos []model.Photo) []model.Photo {
		return append([]model.Photo{*photo}, photos...)
	})
	switch slot {
	case SlotPublic:
		if err := h.api.SetPublicPhoto(ctx, photo.ID); err != nil {
			return photo, err
		}
	case SlotPrivate:
		if err := h.api.SetPrivatePhoto(ctx, photo.ID); err != nil {
			return photo, err
		}
	}

	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			switch slot {
			case SlotPublic:
				g.PublicPhoto = photo
			case SlotPrivate:
				g.PrivatePhoto = photo
			}
			return g
		})
	})
	return photo, nil
}

// DeletePhoto removes the photo from the own-photos list and clears any
// profile slot it occupied.
func (h *Handlers) DeletePhoto(ctx context.Context, id string) error {
	if err := h.api.DeletePhoto(ctx, id); err != nil {
		return err
	}
	cache.PatchValue(h.store, cache.OwnPhotosKey, func(photos []model.Photo) []model.Photo {
		out := slices.Clone(photos)
		return slices.DeleteFunc(out, func(p model.Photo) bool { return p.ID == id })
	})
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			if g.PublicPhoto != nil && g.PublicPhoto.ID == id {
				g.PublicPhoto = nil
			}
			if g.PrivatePhoto != nil && g.PrivatePhoto.ID == id {
				g.PrivatePhoto = nil
			}
			return g
		})
	})
	return nil
}

// Slot assignments are independent of each other: the same photo may occupy
// the public slot, the private slot, both, or neither.

func (h *Handlers) SetPublicPhoto(ctx context.Context, id string) error {
	if err := h.api.SetPublicPhoto(ctx, id); err != nil {
		return err
	}
	photo := h.findOwnPhoto(id)
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.PublicPhoto = photo
			return g
		})
	})
	return nil
}

func (h *Handlers) SetPrivatePhoto(ctx context.Context, id string) error {
	if err := h.api.SetPrivatePhoto(ctx, id); err != nil {
		return err
	}
	photo := h.findOwnPhoto(id)
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.PrivatePhoto = photo
			return g
		})
	})
	return nil
}

func (h *Handlers) UnsetPublicPhoto(ctx context.Context) error {
	if err := h.api.UnsetPublicPhoto(ctx); err != nil {
		return err
	}
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.PublicPhoto = nil
			return g
		})
	})
	return nil
}

func (h *Handlers) UnsetPrivatePhoto(ctx context.Context) error {
	if err := h.api.UnsetPrivatePhoto(ctx); err != nil {
		return err
	}
	h.patchOwnProfile(func(u model.User) model.User {
		return withGated(u, func(g GF) GF {
			g.PrivatePhoto = nil
			return g
		})
	})
	return nil
}

func (h *Handlers) findOwnPhoto(id string) *model.Photo {
	photos, ok := cache.Get[[]model.Photo](h.store, cache.OwnPhotosKey)
	if !ok {
		return &model.Photo{ID: id}
	}
	for _, p := range photos {
		if p.ID == id {
			cp := p
			return &cp
		}
	}
	return &model.Photo{ID: id}
}
