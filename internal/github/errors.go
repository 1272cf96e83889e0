package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrCorrupt means the remote file was read but is not a JSON array of entries.
	ErrCorrupt = errors.New("remote diary file is corrupted")
	// ErrConflict means the write was rejected because the file changed since its sha was read.
	ErrConflict = errors.New("remote diary file changed concurrently")
	// ErrUnauthorized means the token was rejected or lacks access to the repository.
	ErrUnauthorized = errors.New("github rejected the credentials")
	// ErrTransport means the request never got an HTTP response.
	ErrTransport = errors.New("github unreachable")
)

// APIError is a non-success response from the contents API
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.StatusCode)
}

// Is lets callers match on ErrConflict and ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.StatusCode == http.StatusConflict ||
			(e.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(e.Message), "sha"))
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}
