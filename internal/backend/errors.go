package backend

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/templui/taskboard/internal/service"
)

var (
	ErrNotAuthenticated = errors.New("auth session missing")
	ErrBucketNotFound   = errors.New("bucket not found")
)

// AuthError carries the message shown to the user after a failed sign-up or sign-in.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authError(err error) error {
	if err == nil {
		return nil
	}

	var msg string
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		msg = "Invalid login credentials"
	case errors.Is(err, service.ErrEmailNotConfirmed):
		msg = "Email not confirmed"
	case errors.Is(err, service.ErrUserAlreadyRegistered):
		msg = "User already registered"
	case errors.Is(err, service.ErrInvalidEmail):
		msg = "Unable to validate email address: invalid format"
	case errors.Is(err, service.ErrWeakPassword):
		msg = detail(err, service.ErrWeakPassword)
	case errors.Is(err, service.ErrInvalidSession):
		msg = "Invalid session"
	default:
		msg = "Unexpected failure, please try again"
	}

	return &AuthError{Message: msg, Err: err}
}

// detail strips the sentinel prefix from "<sentinel>: <detail>" and capitalises the rest.
func detail(err, sentinel error) string {
	s := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func notAuthenticated(err error) error {
	if err == nil {
		return ErrNotAuthenticated
	}
	return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
}
