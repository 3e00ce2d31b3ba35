package ai

import "errors"

// Sentinel errors for this package.
var (
	// ErrAdapterUnavailable marks any failure of the qualification collaborator.
	// Callers recover from it by scoring the AI category as 0.
	ErrAdapterUnavailable = errors.New("ai adapter unavailable")
	ErrUnparseable        = errors.New("unparseable qualification")
	ErrEmptyResponse      = errors.New("empty ai response")
	ErrMissingAPIKey      = errors.New("ai api key is required")
	ErrUnknownProvider    = errors.New("unknown ai provider")
)
