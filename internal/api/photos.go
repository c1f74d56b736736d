package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/d60-Lab/reveal-client/internal/model"
)

const maxPhotoBytes = 5 << 20

var allowedPhotoExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

// ValidatePhoto is the pure client-side guard run before any upload call.
// Rejections here never reach the network.
func ValidatePhoto(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedPhotoExts[ext]; !ok {
		return fmt.Errorf("unsupported photo type %q", ext)
	}
	if size <= 0 {
		return fmt.Errorf("empty photo file")
	}
	if size > maxPhotoBytes {
		return fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}
	return nil
}

// UploadPhoto sends a multipart upload. The caller is expected to have run
// ValidatePhoto already; the guard is re-applied here as the last line before
// the network boundary.
func (c *Client) UploadPhoto(ctx context.Context, filename string, size int64, r io.Reader) (*model.Photo, error) {
	if err := ValidatePhoto(filename, size); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, io.LimitReader(r, maxPhotoBytes)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/photos", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, normalizeError(resp)
	}
	var out model.Photo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) ListPhotos(ctx context.Context) ([]model.Photo, error) {
	var out []model.Photo
	err := c.do(ctx, http.MethodGet, "/photos", nil, &out)
	return out, err
}

func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/photos/"+url.PathEscape(id), nil, nil)
}

// Photo slots are independent: an id may be the public slot, the private
// slot, both, or neither.

func (c *Client) SetPublicPhoto(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/profile/photos/public/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetPrivatePhoto(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/profile/photos/private/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UnsetPublicPhoto(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/profile/photos/public", nil, nil)
}

func (c *Client) UnsetPrivatePhoto(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/profile/photos/private", nil, nil)
}
