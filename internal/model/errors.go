package model

import "errors"

var (
	// Session/credential related errors
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrPasswordChangeRequired = errors.New("password change required")
	ErrInvalidCredentials     = errors.New("invalid credentials")

	// Upstream API errors. ErrUpstreamUnreachable means no response was
	// received at all; it must never tear down the session.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamFault       = errors.New("upstream fault")

	// Resource errors surfaced by page handlers
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
