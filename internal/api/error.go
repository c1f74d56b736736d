package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const genericMessage = "something went wrong, please try again"

// Error 服务端错误的规范化形式
type Error struct {
	Message    string              `json:"message"`
	Errors     map[string][]string `json:"errors,omitempty"`
	StatusCode int                 `json:"statusCode"`
	Timestamp  string              `json:"timestamp,omitempty"`
	Path       string              `json:"path,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// NotFound reports whether the error is a 404.
func (e *Error) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// normalizeError turns a non-2xx response into a typed *Error, falling back
// to a generic message when the body does not match the backend error shape.
func normalizeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode, Message: genericMessage}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var parsed Error
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil && parsed.Message != "" {
		parsed.StatusCode = resp.StatusCode
		return &parsed
	}
	return apiErr
}

// AsError extracts the typed API error, wrapping transport failures into one
// so callers always surface a presentable message.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Message: genericMessage}
}
