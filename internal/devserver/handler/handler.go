// Package handler implements the backend HTTP contract the client SDK
// consumes. It exists for local sandboxing and tests; it is not a production
// server.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/service"
)

type Handler struct {
	db        *gorm.DB
	relSvc    service.RelationshipService
	revealSvc service.RevealService
	threadSvc service.ThreadService
	jwtSecret []byte
	tokenTTL  time.Duration
}

func New(db *gorm.DB, relSvc service.RelationshipService, revealSvc service.RevealService, threadSvc service.ThreadService, jwtSecret string, tokenTTL time.Duration) *Handler {
	return &Handler{
		db:        db,
		relSvc:    relSvc,
		revealSvc: revealSvc,
		threadSvc: threadSvc,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// writeError emits the error shape the client normalizes:
// {message, errors?, statusCode, timestamp, path}.
func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"message":    message,
		"statusCode": status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"path":       c.Request.URL.Path,
	})
}

func badRequest(c *gin.Context, message string) { writeError(c, http.StatusBadRequest, message) }
func notFound(c *gin.Context, message string)   { writeError(c, http.StatusNotFound, message) }
func conflict(c *gin.Context, message string)   { writeError(c, http.StatusConflict, message) }

func unauthorized(c *gin.Context) {
	writeError(c, http.StatusUnauthorized, "authentication required")
}

func internalError(c *gin.Context, err error) {
	writeError(c, http.StatusInternalServerError, err.Error())
}

const ctxUserID = "currentUserID"

// errAborted signals that a helper already wrote the error response.
var errAborted = errors.New("response already written")

// AuthRequired validates the bearer token and stashes the user id.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			unauthorized(c)
			return
		}
		tok, err := jwt.ParseWithClaims(strings.TrimPrefix(raw, "Bearer "), &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return h.jwtSecret, nil
		})
		if err != nil || !tok.Valid {
			unauthorized(c)
			return
		}
		claims := tok.Claims.(*jwt.RegisteredClaims)
		c.Set(ctxUserID, claims.Subject)
		c.Next()
	}
}

func (h *Handler) currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func (h *Handler) issueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

func (h *Handler) userByUsername(c *gin.Context, username string) (*model.User, bool) {
	var u model.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		notFound(c, "user not found")
		return nil, false
	}
	if err != nil {
		internalError(c, err)
		return nil, false
	}
	return &u, true
}

func (h *Handler) userByID(c *gin.Context, id string) (*model.User, bool) {
	var u model.User
	err := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		notFound(c, "user not found")
		return nil, false
	}
	if err != nil {
		internalError(c, err)
		return nil, false
	}
	return &u, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func pageJSON(data any, page, limit int, total int64) gin.H {
	return gin.H{"data": data, "page": page, "limit": limit, "total": total}
}
