package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNetwork = "NETWORK_ERROR"
	TextCodeStatus  = "UNEXPECTED_STATUS"
	TextCodeDecode  = "MALFORMED_RESPONSE"
	TextCodeRequest = "INVALID_REQUEST"
)

// Problem is an RFC 7807 problem details document. Errors carries the
// validation style map some services attach to 400 responses.
type Problem struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title,omitempty"`
	Status int                 `json:"status,omitempty"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// HasError reports whether any error key starts with prefix
func (p *Problem) HasError(prefix string) bool {
	if p == nil {
		return false
	}
	for key := range p.Errors {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Fields flattens Errors into one message per key
func (p *Problem) Fields() map[string]string {
	if p == nil || len(p.Errors) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.Errors))
	for key, msgs := range p.Errors {
		out[key] = strings.Join(msgs, " ")
	}
	return out
}

// ResponseError is returned for every response with status >= 400
type ResponseError struct {
	Method  string
	Path    string
	Status  int
	Problem *Problem
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Problem != nil && e.Problem.Title != "" {
		msg += ": " + e.Problem.Title
	}
	return msg
}

// AsResponseError digs the ResponseError out of err, following the Source
// of rich errors.
func AsResponseError(err error) (*ResponseError, bool) {
	for err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) {
			return respErr, true
		}

		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.Source == nil || richErr.Source == error(richErr) {
			return nil, false
		}
		err = richErr.Source
	}
	return nil, false
}

// IsUnauthorized reports a 401 response
func IsUnauthorized(err error) bool {
	respErr, ok := AsResponseError(err)
	return ok && respErr.Status == http.StatusUnauthorized
}

// StatusOf returns the response status carried by err, or 0
func StatusOf(err error) int {
	if respErr, ok := AsResponseError(err); ok {
		return respErr.Status
	}
	return 0
}

// newStatusError keeps the status line in the source only, so Error()
// prints it once.
func newStatusError(respErr *ResponseError) error {
	return goerrors.Wrap(respErr, categoryForStatus(respErr.Status), "unexpected status").
		WithTextCode(TextCodeStatus).
		WithCode(respErr.Status)
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return goerrors.CategoryAuth
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	case status >= 500:
		return goerrors.CategoryInternal
	}
	return goerrors.CategoryOperation
}
