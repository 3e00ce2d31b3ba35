package calibration

import "errors"

// Sentinel errors for this package.
var (
	ErrNotFound          = errors.New("estimation not found")
	ErrUnknownEstimation = errors.New("unknown estimation")
	ErrAlreadyReconciled = errors.New("estimation already reconciled")
)
