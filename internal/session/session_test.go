package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
	"github.com/d60-Lab/reveal-client/internal/session"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// authServer 伪造登录端点；signOutCode 控制退出接口的返回码。
func authServer(t *testing.T, token string, signOutCode int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.AuthResponse{
			Token: token,
			User:  model.User{UserSummary: model.UserSummary{ID: "u1", Username: "carol"}},
		})
	})
	mux.HandleFunc("/auth/sign-out", func(w http.ResponseWriter, r *http.Request) {
		if signOutCode != http.StatusOK {
			w.WriteHeader(signOutCode)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newSession(ts *httptest.Server) (*session.Session, *cache.Store) {
	store := cache.New()
	sess := session.New(store)
	c := api.New(ts.URL, api.WithToken(sess.Token))
	sess.Bind(c)
	return sess, store
}

func TestSignInAdoptsTokenAndCachesProfile(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	ts := authServer(t, token, http.StatusOK)
	sess, store := newSession(ts)

	u, err := sess.SignIn(context.Background(), "carol", "pw")
	require.NoError(t, err)
	require.Equal(t, "carol", u.Username)
	require.Equal(t, token, sess.Token())
	require.Equal(t, "carol", sess.Username())
	require.True(t, sess.Authenticated())

	cachedUser, ok := cache.Get[model.User](store, cache.ProfileKey("carol"))
	require.True(t, ok)
	require.Equal(t, "carol", cachedUser.Username)
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	token := signedToken(t, time.Now().Add(-time.Minute))
	ts := authServer(t, token, http.StatusOK)
	sess, _ := newSession(ts)

	_, err := sess.SignIn(context.Background(), "carol", "pw")
	require.NoError(t, err)
	require.False(t, sess.Authenticated())
}

func TestOpaqueTokenStillAuthenticates(t *testing.T) {
	// 非 JWT 的 token 拿不到过期时间，按不过期处理
	ts := authServer(t, "opaque-session-token", http.StatusOK)
	sess, _ := newSession(ts)

	_, err := sess.SignIn(context.Background(), "carol", "pw")
	require.NoError(t, err)
	require.True(t, sess.Authenticated())
}

func TestSignOutClearsEverything(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	ts := authServer(t, token, http.StatusOK)
	sess, store := newSession(ts)

	_, err := sess.SignIn(context.Background(), "carol", "pw")
	require.NoError(t, err)
	store.Write("threads:feed:1:10", model.Page[model.Thread]{Total: 5})
	require.Greater(t, store.Len(), 0)

	require.NoError(t, sess.SignOut(context.Background()))
	require.Empty(t, sess.Token())
	require.Empty(t, sess.Username())
	require.False(t, sess.Authenticated())
	require.Equal(t, 0, store.Len())
}

func TestSignOutClearsLocallyWhenServerFails(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	ts := authServer(t, token, http.StatusInternalServerError)
	sess, store := newSession(ts)

	_, err := sess.SignIn(context.Background(), "carol", "pw")
	require.NoError(t, err)

	err = sess.SignOut(context.Background())
	require.Error(t, err)
	require.Empty(t, sess.Token())
	require.Equal(t, 0, store.Len())
}
