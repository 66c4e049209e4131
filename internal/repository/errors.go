package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when no database pool is configured.
	ErrUnavailable = errors.New("database not configured")
)
