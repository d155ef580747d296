package pipeline

import (
	"errors"
	"fmt"
)

// Pipeline stage names, used in errors and metrics labels.
const (
	StageNormalize  = "normalize"
	StageDetect     = "detect"
	StageTranscribe = "transcribe"
	StageFuse       = "fuse"
)

// ErrInvalidConfig reports a rejected run parameter. No stage runs when a
// run request fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// StageError wraps a failure from one of the pipeline stages so callers can
// tell which stage rejected the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
