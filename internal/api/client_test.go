package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorNormalization(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/ghost":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"user not found","statusCode":404,"path":"/users/ghost"}`))
		case "/auth/sign-up":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"validation failed","errors":{"username":["already taken"]}}`))
		default:
			// 非约定错误体
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`<html>bad gateway</html>`))
		}
	}))
	defer ts.Close()

	c := New(ts.URL)
	ctx := context.Background()

	_, err := c.GetProfile(ctx, "ghost")
	require.Error(t, err)
	apiErr := AsError(err)
	assert.Equal(t, "user not found", apiErr.Message)
	assert.True(t, apiErr.NotFound())

	_, err = c.SignUp(ctx, SignUpPayload{Username: "bob", Email: "bob@example.com", Password: "secret-pass"})
	require.Error(t, err)
	apiErr = AsError(err)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, []string{"already taken"}, apiErr.Errors["username"])

	_, err = c.GetFeed(ctx, 1, 10)
	require.Error(t, err)
	apiErr = AsError(err)
	// 无法解析的错误体退化为统一提示
	assert.Equal(t, "something went wrong, please try again", apiErr.Message)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestAsErrorWrapsTransportFailures(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	_, err := c.GetFeed(context.Background(), 1, 10)
	require.Error(t, err)
	assert.Equal(t, "something went wrong, please try again", AsError(err).Message)
}

func TestBearerTokenHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[],"page":1,"limit":10,"total":0}`))
	}))
	defer ts.Close()

	c := New(ts.URL, WithToken(func() string { return "tok123" }))
	_, err := c.GetFeed(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestPayloadValidationRunsBeforeNetwork(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.SignUp(context.Background(), SignUpPayload{Username: "", Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.False(t, called)
}

func TestValidatePhoto(t *testing.T) {
	assert.NoError(t, ValidatePhoto("me.jpg", 1024))
	assert.NoError(t, ValidatePhoto("ME.JPEG", 1024))
	assert.NoError(t, ValidatePhoto("pic.webp", 5<<20))

	assert.Error(t, ValidatePhoto("doc.pdf", 1024))
	assert.Error(t, ValidatePhoto("noext", 1024))
	assert.Error(t, ValidatePhoto("me.jpg", 0))
	assert.Error(t, ValidatePhoto("me.jpg", (5<<20)+1))
}

func TestUploadPhotoRejectsLocallyWithoutNetwork(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.UploadPhoto(context.Background(), "virus.exe", 100, strings.NewReader("x"))
	require.Error(t, err)
	assert.False(t, called)
}
