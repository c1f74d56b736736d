package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/service"
)

// SendRevealRequest 发起查看请求
func (h *Handler) SendRevealRequest(c *gin.Context) {
	target, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	req, err := h.revealSvc.Send(c.Request.Context(), h.currentUserID(c), target.ID)
	switch {
	case errors.Is(err, service.ErrRequestSelf):
		badRequest(c, err.Error())
		return
	case errors.Is(err, service.ErrRequestPending):
		conflict(c, err.Error())
		return
	case err != nil:
		internalError(c, err)
		return
	}
	out, err := h.requestJSON(c, req)
	if err != nil {
		return
	}
	c.JSON(http.StatusCreated, out)
}

// DeleteRevealRequestByUser 撤回对该用户的在途请求
func (h *Handler) DeleteRevealRequestByUser(c *gin.Context) {
	target, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	req, err := h.revealSvc.DeleteByRequestee(c.Request.Context(), h.currentUserID(c), target.ID)
	if errors.Is(err, service.ErrRequestNotFound) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	out, err := h.requestJSON(c, req)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, out)
}

type respondRequest struct {
	Status string `json:"status" binding:"required,oneof=ACCEPTED REJECTED"`
}

// RespondToRevealRequest 裁决在途请求；只允许 requestee 操作
func (h *Handler) RespondToRevealRequest(c *gin.Context) {
	var body respondRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	req, err := h.revealSvc.Respond(c.Request.Context(), h.currentUserID(c), c.Param("id"), body.Status)
	switch {
	case errors.Is(err, service.ErrRequestNotFound):
		notFound(c, err.Error())
		return
	case errors.Is(err, service.ErrRequestForbidden):
		writeError(c, http.StatusForbidden, err.Error())
		return
	case err != nil:
		internalError(c, err)
		return
	}
	out, err := h.requestJSON(c, req)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, out)
}

// RevokeProfileReveal 撤销对该用户的授权
func (h *Handler) RevokeProfileReveal(c *gin.Context) {
	target, ok := h.userByUsername(c, c.Param("username"))
	if !ok {
		return
	}
	err := h.revealSvc.Revoke(c.Request.Context(), h.currentUserID(c), target.ID)
	if errors.Is(err, service.ErrGrantNotFound) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "NONE"})
}

func (h *Handler) respondRequestPage(c *gin.Context, rows []*model.RevealRequest, page, limit int, total int64) {
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		j, err := h.requestJSON(c, r)
		if err != nil {
			return
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, pageJSON(out, page, limit, total))
}

func (h *Handler) ListIncomingRequests(c *gin.Context) {
	page, limit := pageParams(c)
	rows, total, err := h.revealSvc.ListIncoming(c.Request.Context(), h.currentUserID(c), page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	h.respondRequestPage(c, rows, page, limit, total)
}

func (h *Handler) ListSentRequests(c *gin.Context) {
	page, limit := pageParams(c)
	rows, total, err := h.revealSvc.ListSent(c.Request.Context(), h.currentUserID(c), page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	h.respondRequestPage(c, rows, page, limit, total)
}

// ListRevealedByMe 我开放给别人的授权列表
func (h *Handler) ListRevealedByMe(c *gin.Context) {
	page, limit := pageParams(c)
	rows, total, err := h.revealSvc.ListGrants(c.Request.Context(), h.currentUserID(c), page, limit)
	if err != nil {
		internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, g := range rows {
		j, err := h.grantJSON(c, g)
		if err != nil {
			return
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, pageJSON(out, page, limit, total))
}

// PendingRequestCount 待处理请求数（角标）
func (h *Handler) PendingRequestCount(c *gin.Context) {
	count, err := h.revealSvc.CountPending(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
