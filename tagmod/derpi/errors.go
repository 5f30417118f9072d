package derpi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTransient = errors.New("derpibooru temporarily unavailable")
	ErrNotFound  = errors.New("derpibooru image not found")
)

// Non-200 HTTP response from the API.
type APIError struct {
	StatusCode int
	Op         string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("derpibooru %s request failed statusCode=%d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return ErrTransient
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Whether a lookup error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
