// Package session owns the sign-in lifecycle: it holds the bearer token,
// exposes it to the API client, and drops every cached entry on sign-out.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
	"github.com/d60-Lab/reveal-client/pkg/logger"
)

type Session struct {
	mu        sync.RWMutex
	token     string
	username  string
	expiresAt time.Time

	api   *api.Client
	store *cache.Store
}

func New(store *cache.Store) *Session {
	return &Session{store: store}
}

// Bind attaches the API client after construction; the client needs the
// session as its token source, so the two are wired in this order.
func (s *Session) Bind(c *api.Client) { s.api = c }

// Token implements the api token provider.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Username returns the signed-in username, empty when signed out.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Authenticated reports whether a non-expired token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && (s.expiresAt.IsZero() || time.Now().Before(s.expiresAt))
}

func (s *Session) SignIn(ctx context.Context, username, password string) (*model.User, error) {
	resp, err := s.api.SignIn(ctx, api.SignInPayload{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	s.adopt(resp)
	return &resp.User, nil
}

func (s *Session) SignUp(ctx context.Context, p api.SignUpPayload) (*model.User, error) {
	resp, err := s.api.SignUp(ctx, p)
	if err != nil {
		return nil, err
	}
	s.adopt(resp)
	return &resp.User, nil
}

func (s *Session) adopt(resp *api.AuthResponse) {
	s.mu.Lock()
	s.token = resp.Token
	s.username = resp.User.Username
	s.expiresAt = tokenExpiry(resp.Token)
	s.mu.Unlock()

	s.store.WriteWithRefs(cache.ProfileKey(resp.User.Username), resp.User,
		cache.UserRef(resp.User.Username))
}

// SignOut revokes the server session and evicts the whole cache. The local
// sign-out happens even when the revoke call fails.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.api.SignOut(ctx)
	if err != nil {
		logger.Warn("server sign-out failed", zap.Error(err))
	}
	s.mu.Lock()
	s.token = ""
	s.username = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	s.store.Clear()
	return err
}

// tokenExpiry reads exp from the JWT without verifying the signature; the
// client has no key material and only needs the expiry hint.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
