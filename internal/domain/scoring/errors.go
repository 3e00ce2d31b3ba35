package scoring

import "errors"

// Sentinel errors for this package.
var (
	ErrInvalidWeights  = errors.New("invalid category weights")
	ErrInvalidArtifact = errors.New("invalid classifier artifact")
	ErrNoClassifier    = errors.New("no classifier configured")
	ErrBlendSkipped    = errors.New("classifier blend skipped")
)
