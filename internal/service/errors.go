package service

import "errors"

// Sentinel errors handlers map onto HTTP status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("access denied")
	ErrConflict  = errors.New("already exists")
)
