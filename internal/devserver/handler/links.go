package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

type linkRequest struct {
	Title string `json:"title" binding:"required,max=60"`
	URL   string `json:"url" binding:"required,url"`
}

func (h *Handler) ListLinks(c *gin.Context) {
	var links []model.Link
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", h.currentUserID(c)).
		Order("created_at ASC").
		Find(&links).Error; err != nil {
		internalError(c, err)
		return
	}
	out := make([]gin.H, len(links))
	for i := range links {
		out[i] = linkJSON(&links[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	l := &model.Link{
		ID:        uuid.New().String(),
		UserID:    h.currentUserID(c),
		Title:     req.Title,
		URL:       req.URL,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(l).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, linkJSON(l))
}

func (h *Handler) UpdateLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	var l model.Link
	res := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", c.Param("id"), h.currentUserID(c)).
		First(&l)
	if res.Error != nil {
		notFound(c, "link not found")
		return
	}
	l.Title = req.Title
	l.URL = req.URL
	l.UpdatedAt = time.Now()
	if err := h.db.WithContext(ctx).Save(&l).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkJSON(&l))
}

func (h *Handler) DeleteLink(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", c.Param("id"), h.currentUserID(c)).
		Delete(&model.Link{})
	if res.Error != nil {
		internalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		notFound(c, "link not found")
		return
	}
	c.Status(http.StatusNoContent)
}
