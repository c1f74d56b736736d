package api

import (
	"context"
	"net/http"

	"github.com/d60-Lab/reveal-client/internal/model"
)

type SignUpPayload struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse 登录/注册响应
type AuthResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (c *Client) SignUp(ctx context.Context, p SignUpPayload) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/sign-up", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignIn(ctx context.Context, p SignInPayload) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/sign-in", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/sign-out", nil, nil)
}
