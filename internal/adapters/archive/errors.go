package archive

import "errors"

var (
	ErrNoBucket      = errors.New("archive bucket is required")
	ErrNotReconciled = errors.New("record is not reconciled")
)
