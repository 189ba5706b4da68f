package client

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned for any 401 from the backend.
	ErrSessionExpired = errors.New("session expired")
	// ErrTransport covers network failures and unreadable responses.
	ErrTransport = errors.New("transport failure")
)

// APIError is a business failure reported by the backend: a non-2xx status
// or a {"success": false} envelope.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request failed with status %d", e.Status)
	}
	return fmt.Sprintf("backend request failed with status %d: %s", e.Status, e.Message)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// AsAPIError unwraps a business failure, if err carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
