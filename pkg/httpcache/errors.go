package httpcache

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyKey indicates a key function produced an empty cache key.
var ErrEmptyKey = errors.New("empty cache key")

// Error is a handler failure carrying the HTTP status to answer with.
// It is written to the caller unchanged and never cached.
type Error struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("http %d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given status and message.
func NewError(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// statusOf returns the status for err; anything but *Error is a 500.
func statusOf(err error) (int, string) {
	var httpErr *Error
	if errors.As(err, &httpErr) && httpErr.Status >= 400 {
		return httpErr.Status, httpErr.Message
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
