package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/d60-Lab/reveal-client/internal/model"
)

func (c *Client) GetProfile(ctx context.Context, username string) (*model.User, error) {
	var out model.User
	path := "/users/" + url.PathEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string, page, limit int) (model.Page[model.User], error) {
	var out model.Page[model.User]
	v := url.Values{}
	v.Set("query", query)
	v.Set("page", fmt.Sprint(page))
	v.Set("limit", fmt.Sprint(limit))
	err := c.do(ctx, http.MethodGet, "/users?"+v.Encode(), nil, &out)
	return out, err
}

func (c *Client) ListFollowers(ctx context.Context, username string, page, limit int) (model.Page[model.User], error) {
	var out model.Page[model.User]
	path := "/users/" + url.PathEscape(username) + "/followers" + pageQuery(page, limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ListFollowing(ctx context.Context, username string, page, limit int) (model.Page[model.User], error) {
	var out model.Page[model.User]
	path := "/users/" + url.PathEscape(username) + "/following" + pageQuery(page, limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Follow creates the directed edge current-user -> username. Void response;
// the updated follower count arrives on the next profile refetch.
func (c *Client) Follow(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(username)+"/follow", nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(username)+"/follow", nil, nil)
}

type UpdateProfilePayload struct {
	FullName           *string  `json:"fullName,omitempty"`
	Biography          *string  `json:"biography,omitempty"`
	IsProfileIncognito *bool    `json:"isProfileIncognito,omitempty"`
	InterestIDs        []string `json:"interestIds,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, p UpdateProfilePayload) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodPatch, "/profile", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	err := c.do(ctx, http.MethodGet, "/tags", nil, &out)
	return out, err
}
