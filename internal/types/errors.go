package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrAuthRequired   = errors.New("forum requires login")
	ErrEmptyResponse  = errors.New("empty response body")
	ErrNoContent      = errors.New("no usable post content found")
	ErrOllamaDisabled = errors.New("classification service unavailable")
)

// FetchError wraps errors that occur while fetching a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur while parsing forum HTML.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ClassifyError wraps errors from the classification service.
type ClassifyError struct {
	Title string
	Err   error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("classify error for %q: %v", e.Title, e.Err)
}

func (e *ClassifyError) Unwrap() error { return e.Err }
