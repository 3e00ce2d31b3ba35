package worker

import "errors"

// ErrProcessorPanic wraps a panic raised while processing a job.
var ErrProcessorPanic = errors.New("job processor panicked")
