package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/d60-Lab/reveal-client/internal/model"
)

type LinkPayload struct {
	Title string `json:"title" validate:"required,max=60"`
	URL   string `json:"url" validate:"required,url"`
}

func (c *Client) ListLinks(ctx context.Context) ([]model.Link, error) {
	var out []model.Link
	err := c.do(ctx, http.MethodGet, "/links", nil, &out)
	return out, err
}

func (c *Client) CreateLink(ctx context.Context, p LinkPayload) (*model.Link, error) {
	var out model.Link
	if err := c.do(ctx, http.MethodPost, "/links", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateLink(ctx context.Context, id string, p LinkPayload) (*model.Link, error) {
	var out model.Link
	if err := c.do(ctx, http.MethodPatch, "/links/"+url.PathEscape(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteLink(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/links/"+url.PathEscape(id), nil, nil)
}
