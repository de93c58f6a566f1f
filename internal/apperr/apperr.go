// Package apperr defines the error taxonomy surfaced by the merge engine.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of engine error.
type Code string

const (
	CodeConfigResolution Code = "CONFIG_RESOLUTION" // 502: cyclic/missing extends, malformed document
	CodeFilterRule       Code = "FILTER_RULE"       // 502: conflicting modes, invalid regex
	CodeFeedFetch        Code = "FEED_FETCH"        // per-feed: network/HTTP failure
	CodeFeedParse        Code = "FEED_PARSE"        // per-feed: malformed calendar payload
	CodeNotFound         Code = "NOT_FOUND"         // 404: unknown endpoint name
	CodeInternal         Code = "INTERNAL"          // 500
)

// Error is a structured error with a code, an HTTP status and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigResolution creates a fatal configuration resolution error.
func NewConfigResolution(msg string) *Error {
	return &Error{Code: CodeConfigResolution, Status: http.StatusBadGateway, Message: msg}
}

// WrapConfigResolution wraps an underlying cause into a resolution error.
func WrapConfigResolution(msg string, err error) *Error {
	return &Error{Code: CodeConfigResolution, Status: http.StatusBadGateway, Message: msg, Err: err}
}

// NewFilterRule creates a fatal filter-rule error (conflicting modes or a
// malformed regex), surfaced at resolution time.
func NewFilterRule(msg string) *Error {
	return &Error{Code: CodeFilterRule, Status: http.StatusBadGateway, Message: msg}
}

// NewFeedFetch wraps a network or HTTP-status failure for one feed.
func NewFeedFetch(url string, err error) *Error {
	return &Error{Code: CodeFeedFetch, Status: http.StatusBadGateway, Message: fmt.Sprintf("fetching %s", url), Err: err}
}

// NewFeedParse wraps a calendar parse failure for one feed.
func NewFeedParse(name string, err error) *Error {
	return &Error{Code: CodeFeedParse, Status: http.StatusBadGateway, Message: fmt.Sprintf("parsing feed %q", name), Err: err}
}

// NewNotFound reports an unknown endpoint name.
func NewNotFound(name string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf("no configuration named %q", name)}
}

// NewInternal wraps an unexpected failure.
func NewInternal(err error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf maps an error to the HTTP status to serve it with.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
