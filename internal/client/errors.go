package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrFlushInProgress = errors.New("queue flush already in progress")

	errQueuedBehind = errors.New("earlier writes are still queued")
)

// NetworkError is a connectivity failure: the request never produced an HTTP
// response. Reads fall back to the cache and writes are queued.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// APIError surfaces non-2xx responses from the server. It is never queued or cached.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d: %s", e.StatusCode, e.Message)
}

//nolint:errorlint
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
