package vad

import (
	"context"

	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
)

// Detector classifies a normalized recording into speech and silence
// intervals. Implementations must return intervals that are ordered,
// non-overlapping, and collectively span [0, total duration) with no gaps.
type Detector interface {
	Detect(ctx context.Context, samples []int16, sampleRate int) ([]timeline.Interval, error)
}

// Config contains detector configuration.
type Config struct {
	ModelPath          string
	LibraryPath        string // onnxruntime shared library, empty for the platform default
	Threshold          float32
	WindowSize         int     // samples per model window
	MinSpeechDuration  float64 // seconds
	MinSilenceDuration float64 // seconds
}
