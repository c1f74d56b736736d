package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/d60-Lab/reveal-client/internal/model"
)

// SendRevealRequest asks username for access to their gated fields.
// The server answers with the new PENDING request.
func (c *Client) SendRevealRequest(ctx context.Context, username string) (*model.RevealRequest, error) {
	var out model.RevealRequest
	path := "/reveals/request/" + url.PathEscape(username)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRevealRequestByUserName withdraws the viewer's request towards
// username. The response carries the post-delete status (typically NONE).
func (c *Client) DeleteRevealRequestByUserName(ctx context.Context, username string) (*model.RevealRequest, error) {
	var out model.RevealRequest
	path := "/reveals/request/user/" + url.PathEscape(username)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type respondPayload struct {
	Status model.Decision `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

// RespondToRevealRequest decides a pending request. Whatever state the server
// returns is taken as-is; re-deciding is not assumed idempotent.
func (c *Client) RespondToRevealRequest(ctx context.Context, requestID string, decision model.Decision) (*model.RevealRequest, error) {
	var out model.RevealRequest
	path := "/reveals/request/" + url.PathEscape(requestID)
	if err := c.do(ctx, http.MethodPatch, path, respondPayload{Status: decision}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type revokeResponse struct {
	Status model.RevealStatus `json:"status"`
}

// RevokeProfileReveal deletes the standing grant towards username.
func (c *Client) RevokeProfileReveal(ctx context.Context, username string) (model.RevealStatus, error) {
	var out revokeResponse
	path := "/reveals/revealed/" + url.PathEscape(username)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return model.RevealAbsent, err
	}
	return out.Status, nil
}

func (c *Client) ListIncomingRequests(ctx context.Context, page, limit int) (model.Page[model.RevealRequest], error) {
	var out model.Page[model.RevealRequest]
	err := c.do(ctx, http.MethodGet, "/reveals/requests/incoming"+pageQuery(page, limit), nil, &out)
	return out, err
}

func (c *Client) ListSentRequests(ctx context.Context, page, limit int) (model.Page[model.RevealRequest], error) {
	var out model.Page[model.RevealRequest]
	err := c.do(ctx, http.MethodGet, "/reveals/requests/sent"+pageQuery(page, limit), nil, &out)
	return out, err
}

func (c *Client) ListRevealedByMe(ctx context.Context, page, limit int) (model.Page[model.ProfileReveal], error) {
	var out model.Page[model.ProfileReveal]
	err := c.do(ctx, http.MethodGet, "/reveals/revealed"+pageQuery(page, limit), nil, &out)
	return out, err
}

type pendingCountResponse struct {
	Count int `json:"count"`
}

func (c *Client) PendingRequestCount(ctx context.Context) (int, error) {
	var out pendingCountResponse
	err := c.do(ctx, http.MethodGet, "/reveals/requests/pending-count", nil, &out)
	return out.Count, err
}
