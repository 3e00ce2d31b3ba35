package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("lead score not found")
	ErrInvalidLimit = errors.New("invalid ranking limit")
	ErrEmptyLeadID  = errors.New("empty lead id")
)
