package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/service"
)

type createThreadRequest struct {
	Content     string   `json:"content" binding:"required,max=500"`
	MediaIDs    []string `json:"mediaIds" binding:"max=4"`
	IsIncognito bool     `json:"isIncognito"`
	ParentID    string   `json:"parentId"`
}

type updateThreadRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

// CreateThread 发帖；附件引用已上传照片
func (h *Handler) CreateThread(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	urls := make([]string, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		p, ok := h.photoByID(c, id)
		if !ok {
			badRequest(c, "unknown media id "+id)
			return
		}
		urls = append(urls, p.URL)
	}
	th, err := h.threadSvc.Publish(c.Request.Context(), h.currentUserID(c), req.Content, req.IsIncognito, req.ParentID, urls)
	if errors.Is(err, service.ErrThreadNotFound) {
		notFound(c, "parent thread not found")
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	out, err := h.threadJSON(c, h.currentUserID(c), th)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetThread(c *gin.Context) {
	th, err := h.threadSvc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrThreadNotFound) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	out, err := h.threadJSON(c, h.currentUserID(c), th)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateThread(c *gin.Context) {
	var req updateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	th, err := h.threadSvc.Update(c.Request.Context(), h.currentUserID(c), c.Param("id"), req.Content)
	switch {
	case errors.Is(err, service.ErrThreadNotFound):
		notFound(c, err.Error())
		return
	case errors.Is(err, service.ErrThreadForbidden):
		writeError(c, http.StatusForbidden, err.Error())
		return
	case err != nil:
		internalError(c, err)
		return
	}
	out, err := h.threadJSON(c, h.currentUserID(c), th)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) DeleteThread(c *gin.Context) {
	err := h.threadSvc.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	switch {
	case errors.Is(err, service.ErrThreadNotFound):
		notFound(c, err.Error())
		return
	case errors.Is(err, service.ErrThreadForbidden):
		writeError(c, http.StatusForbidden, err.Error())
		return
	case err != nil:
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) LikeThread(c *gin.Context) {
	err := h.threadSvc.Like(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if errors.Is(err, service.ErrThreadNotFound) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnlikeThread(c *gin.Context) {
	if err := h.threadSvc.Unlike(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondThreadPage(c *gin.Context, rows []*model.Thread, page, limit int, total int64) {
	viewerID := h.currentUserID(c)
	out := make([]gin.H, 0, len(rows))
	for _, th := range rows {
		j, err := h.threadJSON(c, viewerID, th)
		if err != nil {
			internalError(c, err)
			return
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, pageJSON(out, page, limit, total))
}

// GetFeed 当前用户的时间线（inbox 扇出结果）
func (h *Handler) GetFeed(c *gin.Context) {
	page, limit := pageParams(c)
	rows, total, err := h.threadSvc.Feed(c.Request.Context(), h.currentUserID(c), page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	h.respondThreadPage(c, rows, page, limit, total)
}

func (h *Handler) ListReplies(c *gin.Context) {
	page, limit := pageParams(c)
	rows, total, err := h.threadSvc.Replies(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	h.respondThreadPage(c, rows, page, limit, total)
}

// ListUserThreads 某用户的公开发帖（匿名帖对他人隐藏作者但仍列出）
func (h *Handler) ListUserThreads(c *gin.Context) {
	u, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	page, limit := pageParams(c)
	rows, total, err := h.threadSvc.ByAuthor(c.Request.Context(), u.ID, page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	h.respondThreadPage(c, rows, page, limit, total)
}
