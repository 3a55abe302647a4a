package utils

import "errors"

var (
	// ErrNotConfigured means the outbound mail transport has no usable
	// SMTP credentials. Surfaced at process start, never per send.
	ErrNotConfigured = errors.New("mail transport is not configured")

	// ErrMissingContext means a template cannot be rendered because the
	// invoice or its client is absent from the rendering context.
	ErrMissingContext = errors.New("rendering context is missing invoice or client data")
)
