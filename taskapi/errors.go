package taskapi

import (
	"errors"
	"fmt"
	"net/http"
)

// requestError is the shared shape of every failed call to the task API.
type requestError struct {
	// StatusCode is zero when the request never got a response.
	StatusCode int
	// Message is the remote `error` field, or the transport error text.
	Message string
	Err     error
}

func (e *requestError) describe(op string) string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", op, e.Err)
	}
	return op + ": " + http.StatusText(e.StatusCode)
}

// FetchError is returned when the task list cannot be retrieved.
type FetchError struct{ requestError }

func (e *FetchError) Error() string { return e.describe("fetch tasks") }
func (e *FetchError) Unwrap() error { return e.Err }

// CreateError is returned when the remote service rejects or never receives a new task.
type CreateError struct{ requestError }

func (e *CreateError) Error() string { return e.describe("create task") }
func (e *CreateError) Unwrap() error { return e.Err }

// UpdateError is returned when a task update fails.
type UpdateError struct{ requestError }

func (e *UpdateError) Error() string { return e.describe("update task") }
func (e *UpdateError) Unwrap() error { return e.Err }

// DeleteError is returned when a task cannot be removed.
type DeleteError struct{ requestError }

func (e *DeleteError) Error() string { return e.describe("delete task") }
func (e *DeleteError) Unwrap() error { return e.Err }

// ErrUnexpectedStatus is wrapped by errors built from non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// RemoteError is implemented by every error type in this package.
type RemoteError interface {
	error
	// HTTPStatus returns the response status, or 0 for transport failures.
	HTTPStatus() int
	// RemoteMessage returns the message suitable for showing to a user.
	RemoteMessage() string
}

func (e *requestError) HTTPStatus() int { return e.StatusCode }

func (e *requestError) RemoteMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}
