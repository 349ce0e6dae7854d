package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers map these onto HTTP status
// codes in one place.
var (
	ErrForbidden          = errors.New("access to this tenant is not allowed")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrStudyNotFound      = errors.New("study not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSlugTaken          = errors.New("slug already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// QuotaExceededError reports a monthly plan limit hit. The limit is carried so
// the response can tell the user what their ceiling is.
type QuotaExceededError struct {
	Resource string
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly %s quota exceeded (limit %d)", e.Resource, e.Limit)
}
