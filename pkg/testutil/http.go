// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// NewFormRequest creates a POST request with an urlencoded form body.
func NewFormRequest(t *testing.T, path string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// WithCookies copies every cookie set on a previous response onto req.
func WithCookies(req *http.Request, from *httptest.ResponseRecorder) *http.Request {
	for _, c := range from.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

// AssertBodyContains asserts the rendered body contains every fragment.
// Fragments are compared against the HTML-escaped body, so callers pass the
// text as the browser would show it.
func AssertBodyContains(t *testing.T, rr *httptest.ResponseRecorder, fragments ...string) {
	t.Helper()
	body := rr.Body.String()
	for _, f := range fragments {
		assert.Contains(t, body, f)
	}
}

// AssertStatusAndBody asserts both status and body fragments.
func AssertStatusAndBody(t *testing.T, rr *httptest.ResponseRecorder, expected int, fragments ...string) {
	t.Helper()
	AssertStatus(t, rr, expected)
	AssertBodyContains(t, rr, fragments...)
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
	"+", "&#43;",
)

// HTMLEscaped mirrors html/template's escaping of text and attribute values,
// for asserting that submitted values were echoed back.
func HTMLEscaped(s string) string {
	return htmlReplacer.Replace(s)
}
