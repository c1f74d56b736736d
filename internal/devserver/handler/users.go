package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/service"
)

// GetProfile 按用户名查询资料（可见性取决于访问者）
func (h *Handler) GetProfile(c *gin.Context) {
	u, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	out, err := h.userJSON(c, h.currentUserID(c), u)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SearchUsers 按用户名前缀搜索
func (h *Handler) SearchUsers(c *gin.Context) {
	page, limit := pageParams(c)
	query := c.Query("query")

	dbq := h.db.WithContext(c.Request.Context()).Model(&model.User{})
	if query != "" {
		dbq = dbq.Where("username LIKE ?", query+"%")
	}
	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		internalError(c, err)
		return
	}
	var users []model.User
	if err := dbq.Order("username ASC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		internalError(c, err)
		return
	}
	h.respondUserPage(c, users, page, limit, total)
}

func (h *Handler) respondUserPage(c *gin.Context, users []model.User, page, limit int, total int64) {
	viewerID := h.currentUserID(c)
	out := make([]gin.H, 0, len(users))
	for i := range users {
		j, err := h.userJSON(c, viewerID, &users[i])
		if err != nil {
			internalError(c, err)
			return
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, pageJSON(out, page, limit, total))
}

func (h *Handler) usersByIDs(c *gin.Context, ids []string) ([]model.User, bool) {
	if len(ids) == 0 {
		return []model.User{}, true
	}
	var users []model.User
	if err := h.db.WithContext(c.Request.Context()).Where("id IN ?", ids).Find(&users).Error; err != nil {
		internalError(c, err)
		return nil, false
	}
	// 保持列表服务返回的顺序
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, true
}

// ListFollowers 粉丝列表（读冗余 fans 表）
func (h *Handler) ListFollowers(c *gin.Context) {
	u, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	page, limit := pageParams(c)
	ids, total, err := h.relSvc.ListFans(c.Request.Context(), u.ID, page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	users, ok := h.usersByIDs(c, ids)
	if !ok {
		return
	}
	h.respondUserPage(c, users, page, limit, total)
}

func (h *Handler) ListFollowing(c *gin.Context) {
	u, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	page, limit := pageParams(c)
	ids, total, err := h.relSvc.ListFollowing(c.Request.Context(), u.ID, page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	users, ok := h.usersByIDs(c, ids)
	if !ok {
		return
	}
	h.respondUserPage(c, users, page, limit, total)
}

// Follow 建立关注（冗余粉丝表异步写入）
func (h *Handler) Follow(c *gin.Context) {
	target, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	err := h.relSvc.Follow(c.Request.Context(), h.currentUserID(c), target.ID)
	if errors.Is(err, service.ErrFollowSelf) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Unfollow(c *gin.Context) {
	target, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	if err := h.relSvc.Unfollow(c.Request.Context(), h.currentUserID(c), target.ID); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateProfileRequest struct {
	FullName           *string  `json:"fullName"`
	Biography          *string  `json:"biography"`
	IsProfileIncognito *bool    `json:"isProfileIncognito"`
	InterestIDs        []string `json:"interestIds"`
}

// UpdateProfile 更新本人资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, ok := h.userByID(c, h.currentUserID(c))
	if !ok {
		return
	}
	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Biography != nil {
		updates["biography"] = *req.Biography
	}
	if req.IsProfileIncognito != nil {
		updates["is_incognito"] = *req.IsProfileIncognito
	}
	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
			internalError(c, err)
			return
		}
	}
	if req.InterestIDs != nil {
		var tags []model.Tag
		if err := h.db.WithContext(ctx).Where("id IN ?", req.InterestIDs).Find(&tags).Error; err != nil {
			internalError(c, err)
			return
		}
		if err := h.db.WithContext(ctx).Model(u).Association("Interests").Replace(tags); err != nil {
			internalError(c, err)
			return
		}
	}
	fresh, ok := h.userByID(c, u.ID)
	if !ok {
		return
	}
	out, err := h.userJSON(c, u.ID, fresh)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListTags 全量兴趣标签
func (h *Handler) ListTags(c *gin.Context) {
	var tags []model.Tag
	if err := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&tags).Error; err != nil {
		internalError(c, err)
		return
	}
	out := make([]gin.H, len(tags))
	for i := range tags {
		out[i] = tagJSON(&tags[i])
	}
	c.JSON(http.StatusOK, out)
}
