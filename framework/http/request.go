package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxBody bounds what Bind reads.
const maxBody = 1 << 20

// ErrEmptyBody is returned by Bind for a request without a body.
var ErrEmptyBody = errors.New("empty request body")

// Request wraps *http.Request with input helpers for module handlers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Bind decodes a JSON body into v. Unknown fields are rejected.
func (req *Request) Bind(v any) error {
	if req.raw.Body == nil {
		return ErrEmptyBody
	}
	defer req.raw.Body.Close()

	body, err := io.ReadAll(io.LimitReader(req.raw.Body, maxBody))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// Query returns a query-string value, or the first fallback when it is empty.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// QueryInt parses a query-string value as an int. Missing or malformed
// values yield fallback.
func (req *Request) QueryInt(key string, fallback int) int {
	n, err := strconv.Atoi(req.raw.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return n
}

// RouteParam returns a URL route parameter.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

func (req *Request) Header(key string) string { return req.raw.Header.Get(key) }
func (req *Request) Method() string           { return req.raw.Method }
func (req *Request) Path() string             { return req.raw.URL.Path }

// IsJSON reports whether the client sent or expects JSON.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.raw.Header.Get("Content-Type"), "application/json")
}
