package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/d60-Lab/reveal-client/internal/model"
)

type CreateThreadPayload struct {
	Content     string   `json:"content" validate:"required,max=500"`
	MediaIDs    []string `json:"mediaIds,omitempty" validate:"max=4"`
	IsIncognito bool     `json:"isIncognito"`
	ParentID    string   `json:"parentId,omitempty"`
}

type UpdateThreadPayload struct {
	Content string `json:"content" validate:"required,max=500"`
}

func (c *Client) GetFeed(ctx context.Context, page, limit int) (model.Page[model.Thread], error) {
	var out model.Page[model.Thread]
	err := c.do(ctx, http.MethodGet, "/threads/feed"+pageQuery(page, limit), nil, &out)
	return out, err
}

func (c *Client) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	var out model.Thread
	if err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListReplies(ctx context.Context, threadID string, page, limit int) (model.Page[model.Thread], error) {
	var out model.Page[model.Thread]
	path := "/threads/" + url.PathEscape(threadID) + "/replies" + pageQuery(page, limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ListUserThreads(ctx context.Context, username string, page, limit int) (model.Page[model.Thread], error) {
	var out model.Page[model.Thread]
	path := "/users/" + url.PathEscape(username) + "/threads" + pageQuery(page, limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateThread(ctx context.Context, p CreateThreadPayload) (*model.Thread, error) {
	var out model.Thread
	if err := c.do(ctx, http.MethodPost, "/threads", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateThread(ctx context.Context, id string, p UpdateThreadPayload) (*model.Thread, error) {
	var out model.Thread
	if err := c.do(ctx, http.MethodPatch, "/threads/"+url.PathEscape(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteThread(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/threads/"+url.PathEscape(id), nil, nil)
}

func (c *Client) LikeThread(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(id)+"/like", nil, nil)
}

func (c *Client) UnlikeThread(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/threads/"+url.PathEscape(id)+"/like", nil, nil)
}
