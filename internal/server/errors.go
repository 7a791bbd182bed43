// Package server provides the chat web app: pages, the chat API and account routes.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/taskkit/internal/chat"
)

// ErrUserExists indicates the username or email is already registered
type ErrUserExists struct {
	Username string
	Email    string
}

func (e *ErrUserExists) Error() string {
	return fmt.Sprintf("username or email already registered: %s / %s", e.Username, e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		exists     *ErrUserExists
		invalid    *ErrInvalidCredentials
		validation *ErrValidation
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &exists):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusUnauthorized
	case errors.As(err, &validation), errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
