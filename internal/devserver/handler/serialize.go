package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

func summaryJSON(u *model.User) gin.H {
	return gin.H{
		"id":                 u.ID,
		"username":           u.Username,
		"isProfileIncognito": u.IsIncognito,
	}
}

func photoJSON(p *model.Photo) gin.H {
	if p == nil {
		return nil
	}
	return gin.H{"id": p.ID, "url": p.URL, "uploadedAt": p.CreatedAt}
}

func linkJSON(l *model.Link) gin.H {
	return gin.H{"id": l.ID, "title": l.Title, "url": l.URL}
}

func tagJSON(t *model.Tag) gin.H {
	return gin.H{"id": t.ID, "name": t.Name}
}

// userJSON builds the viewer-dependent profile view. Gated fields are only
// serialized for the owner or holders of a standing grant; everyone else
// gets the summary and counters.
func (h *Handler) userJSON(c *gin.Context, viewerID string, u *model.User) (gin.H, error) {
	ctx := c.Request.Context()
	out := summaryJSON(u)
	out["followersCount"] = u.FollowersCount
	out["followingCount"] = u.FollowingCount
	out["createdAt"] = u.CreatedAt

	followed := false
	if viewerID != "" && viewerID != u.ID {
		var err error
		followed, err = h.relSvc.IsFollowing(ctx, viewerID, u.ID)
		if err != nil {
			return nil, err
		}
	}
	out["isFollowedByCurrentUser"] = followed

	status := ""
	if viewerID != "" && viewerID != u.ID {
		var err error
		status, err = h.revealSvc.Status(ctx, viewerID, u.ID)
		if err != nil {
			return nil, err
		}
	}
	if status == "" {
		status = "NONE"
	}
	out["revealRequestStatus"] = status

	canView, err := h.revealSvc.CanView(ctx, viewerID, u.ID)
	if err != nil {
		return nil, err
	}
	if canView {
		gated, err := h.gatedJSON(c, u)
		if err != nil {
			return nil, err
		}
		out["gated"] = gated
	}
	return out, nil
}

func (h *Handler) gatedJSON(c *gin.Context, u *model.User) (gin.H, error) {
	ctx := c.Request.Context()

	var links []model.Link
	if err := h.db.WithContext(ctx).Where("user_id = ?", u.ID).Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	linkOut := make([]gin.H, len(links))
	for i := range links {
		linkOut[i] = linkJSON(&links[i])
	}

	var interests []model.Tag
	if err := h.db.WithContext(ctx).
		Joins("JOIN user_tags ON user_tags.tag_id = tags.id").
		Where("user_tags.user_id = ?", u.ID).
		Find(&interests).Error; err != nil {
		return nil, err
	}
	tagOut := make([]gin.H, len(interests))
	for i := range interests {
		tagOut[i] = tagJSON(&interests[i])
	}

	gated := gin.H{
		"fullName":     u.FullName,
		"biography":    u.Biography,
		"links":        linkOut,
		"interests":    tagOut,
		"publicPhoto":  nil,
		"privatePhoto": nil,
	}
	if u.PublicPhotoID != nil {
		if p, ok := h.photoByID(c, *u.PublicPhotoID); ok {
			gated["publicPhoto"] = photoJSON(p)
		}
	}
	if u.PrivatePhotoID != nil {
		if p, ok := h.photoByID(c, *u.PrivatePhotoID); ok {
			gated["privatePhoto"] = photoJSON(p)
		}
	}
	return gated, nil
}

func (h *Handler) photoByID(c *gin.Context, id string) (*model.Photo, bool) {
	var p model.Photo
	if err := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, false
	}
	return &p, true
}

func (h *Handler) requestJSON(c *gin.Context, req *model.RevealRequest) (gin.H, error) {
	requester, ok := h.userByID(c, req.RequesterID)
	if !ok {
		return nil, errAborted
	}
	requestee, ok := h.userByID(c, req.RequesteeID)
	if !ok {
		return nil, errAborted
	}
	status := req.Status
	if status == "" {
		status = "NONE"
	}
	return gin.H{
		"id":        req.ID,
		"status":    status,
		"requester": summaryJSON(requester),
		"requestee": summaryJSON(requestee),
		"createdAt": req.CreatedAt,
	}, nil
}

func (h *Handler) grantJSON(c *gin.Context, g *model.ProfileReveal) (gin.H, error) {
	revealer, ok := h.userByID(c, g.RevealerID)
	if !ok {
		return nil, errAborted
	}
	revealedTo, ok := h.userByID(c, g.RevealedToID)
	if !ok {
		return nil, errAborted
	}
	return gin.H{
		"id":         g.ID,
		"revealer":   summaryJSON(revealer),
		"revealedTo": summaryJSON(revealedTo),
		"createdAt":  g.CreatedAt,
	}, nil
}

// threadJSON hides the author of incognito threads from everyone but the
// author themselves.
func (h *Handler) threadJSON(c *gin.Context, viewerID string, th *model.Thread) (gin.H, error) {
	ctx := c.Request.Context()

	var author gin.H
	if !th.IsIncognito || th.AuthorID == viewerID {
		if u, ok := h.userByID(c, th.AuthorID); ok {
			author = summaryJSON(u)
		} else {
			return nil, errAborted
		}
	}

	liked, err := h.threadSvc.IsLiked(ctx, viewerID, th.ID)
	if err != nil {
		return nil, err
	}
	media, err := h.threadSvc.MediaFor(ctx, th.ID)
	if err != nil {
		return nil, err
	}
	mediaOut := make([]gin.H, len(media))
	for i, m := range media {
		mediaOut[i] = gin.H{"id": m.ID, "url": m.URL}
	}

	out := gin.H{
		"id":                   th.ID,
		"content":              th.Content,
		"media":                mediaOut,
		"isIncognito":          th.IsIncognito,
		"author":               author,
		"likeCount":            th.LikeCount,
		"isLikedByCurrentUser": liked,
		"replyCount":           th.ReplyCount,
		"createdAt":            th.CreatedAt,
		"updatedAt":            th.UpdatedAt,
	}
	if th.ParentID != nil {
		out["parentId"] = *th.ParentID
	}
	return out, nil
}
