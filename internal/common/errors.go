// Package common defines shared constants and sentinel errors used across
// client and server layers of Digestry. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Request-handling errors mapped to protocol response codes by the
	// transport layer.
	ErrNotPermitted        = errors.New("operation not permitted")
	ErrBadRequest          = errors.New("bad request")
	ErrNotImplemented      = errors.New("not implemented")
	ErrVersionNotSupported = errors.New("protocol version not supported")
)
