package handler

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

const maxPhotoBytes = 5 << 20

var allowedPhotoExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

// UploadPhoto 接收 multipart 上传；只保存元数据，不落地文件内容
func (h *Handler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing file field")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedPhotoExts[ext]; !ok {
		badRequest(c, "unsupported photo type "+ext)
		return
	}
	if file.Size > maxPhotoBytes {
		badRequest(c, "photo too large")
		return
	}
	p := &model.Photo{
		ID:        uuid.New().String(),
		UserID:    h.currentUserID(c),
		Filename:  file.Filename,
		CreatedAt: time.Now(),
	}
	p.URL = "/static/photos/" + p.ID + ext
	if err := h.db.WithContext(c.Request.Context()).Create(p).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photoJSON(p))
}

// ListPhotos 本人照片，新的在前
func (h *Handler) ListPhotos(c *gin.Context) {
	var photos []model.Photo
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", h.currentUserID(c)).
		Order("created_at DESC").
		Find(&photos).Error; err != nil {
		internalError(c, err)
		return
	}
	out := make([]gin.H, len(photos))
	for i := range photos {
		out[i] = photoJSON(&photos[i])
	}
	c.JSON(http.StatusOK, out)
}

// DeletePhoto 删除照片并清空引用它的槽位
func (h *Handler) DeletePhoto(c *gin.Context) {
	id := c.Param("id")
	userID := h.currentUserID(c)
	ctx := c.Request.Context()

	res := h.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Photo{})
	if res.Error != nil {
		internalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		notFound(c, "photo not found")
		return
	}
	if err := h.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND public_photo_id = ?", userID, id).
		Update("public_photo_id", nil).Error; err != nil {
		internalError(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND private_photo_id = ?", userID, id).
		Update("private_photo_id", nil).Error; err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setPhotoSlot(c *gin.Context, column string, id *string) {
	userID := h.currentUserID(c)
	ctx := c.Request.Context()
	if id != nil {
		var cnt int64
		if err := h.db.WithContext(ctx).Model(&model.Photo{}).
			Where("id = ? AND user_id = ?", *id, userID).
			Count(&cnt).Error; err != nil {
			internalError(c, err)
			return
		}
		if cnt == 0 {
			notFound(c, "photo not found")
			return
		}
	}
	var val any
	if id != nil {
		val = *id
	}
	if err := h.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update(column, val).Error; err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 槽位互相独立：同一张照片可同时是 public 和 private

func (h *Handler) SetPublicPhoto(c *gin.Context) {
	id := c.Param("id")
	h.setPhotoSlot(c, "public_photo_id", &id)
}

func (h *Handler) SetPrivatePhoto(c *gin.Context) {
	id := c.Param("id")
	h.setPhotoSlot(c, "private_photo_id", &id)
}

func (h *Handler) UnsetPublicPhoto(c *gin.Context) {
	h.setPhotoSlot(c, "public_photo_id", nil)
}

func (h *Handler) UnsetPrivatePhoto(c *gin.Context) {
	h.setPhotoSlot(c, "private_photo_id", nil)
}
