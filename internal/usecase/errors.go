package usecase

import "errors"

// Errors that are not arisan rule violations. The HTTP layer maps them to
// 400, 404, 401 and 503 respectively.
var (
	ErrInvalidInput          = errors.New("invalid request input")
	ErrNotFound              = errors.New("group, period or payment not found")
	ErrUnauthorized          = errors.New("missing or invalid access token")
	ErrDependencyUnavailable = errors.New("proof storage or identity provider unavailable")
)
