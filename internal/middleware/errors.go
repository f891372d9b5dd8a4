package middleware

import "errors"

// Errors returned by middleware; the HTTP error handler renders them.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)
