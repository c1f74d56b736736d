package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

type signUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type signInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUp 注册并颁发 token
func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, err)
		return
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(u).Error; err != nil {
		conflict(c, "username or email already taken")
		return
	}
	h.respondAuth(c, u)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var u model.User
	err := h.db.WithContext(c.Request.Context()).Where("username = ?", req.Username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.respondAuth(c, &u)
}

func (h *Handler) respondAuth(c *gin.Context, u *model.User) {
	token, err := h.issueToken(u.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	userOut, err := h.userJSON(c, u.ID, u)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userOut})
}

// SignOut is stateless server-side: tokens expire on their own. The
// endpoint exists so clients have a confirmed point to clear local state.
func (h *Handler) SignOut(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
