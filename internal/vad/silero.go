package vad

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
)

// Silero model tensor shapes: the RNN state is [2, 1, 128] and is carried
// across windows within one recording.
const (
	stateLayers = 2
	stateDim    = 128
)

// SileroDetector runs the Silero VAD ONNX model over sliding windows and
// converts the per-window probabilities into intervals. A single model
// session is not reentrant, so Detect is serialized with a mutex; the
// pipeline bounds concurrency one level up.
type SileroDetector struct {
	config  Config
	session *ort.DynamicAdvancedSession

	mu sync.Mutex
}

// NewSileroDetector loads the ONNX model and prepares an inference session.
func NewSileroDetector(config Config) (*SileroDetector, error) {
	if config.Threshold < 0 || config.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", config.Threshold)
	}

	if config.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", config.WindowSize)
	}

	if !ort.IsInitialized() {
		if config.LibraryPath != "" {
			ort.SetSharedLibraryPath(config.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization: %w", err)
	}

	if err := opts.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("failed to set thread count: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load VAD model %s: %w", config.ModelPath, err)
	}

	return &SileroDetector{
		config:  config,
		session: session,
	}, nil
}

// Detect runs the model over the full recording and returns the contiguous
// speech/silence interval sequence.
func (d *SileroDetector) Detect(ctx context.Context, samples []int16, sampleRate int) ([]timeline.Interval, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot detect on empty audio")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	probs, err := d.windowProbabilities(ctx, samples, sampleRate)
	if err != nil {
		return nil, err
	}

	totalDuration := float64(len(samples)) / float64(sampleRate)
	windowDuration := float64(d.config.WindowSize) / float64(sampleRate)

	return IntervalsFromProbabilities(probs, totalDuration, SegmenterConfig{
		Threshold:          d.config.Threshold,
		WindowDuration:     windowDuration,
		MinSpeechDuration:  d.config.MinSpeechDuration,
		MinSilenceDuration: d.config.MinSilenceDuration,
	}), nil
}

// windowProbabilities runs one inference per window, carrying the RNN state
// forward. The trailing partial window is zero-padded.
func (d *SileroDetector) windowProbabilities(ctx context.Context, samples []int16, sampleRate int) ([]float32, error) {
	windowSize := d.config.WindowSize
	numWindows := (len(samples) + windowSize - 1) / windowSize

	state := make([]float32, stateLayers*stateDim)
	window := make([]float32, windowSize)
	probs := make([]float32, 0, numWindows)

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sampleRate)})
	if err != nil {
		return nil, fmt.Errorf("failed to create sample rate tensor: %w", err)
	}
	defer srTensor.Destroy()

	for w := 0; w < numWindows; w++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range window {
			idx := w*windowSize + i
			if idx < len(samples) {
				window[i] = float32(samples[idx]) / 32768.0
			} else {
				window[i] = 0
			}
		}

		prob, err := d.runWindow(window, state, srTensor)
		if err != nil {
			return nil, fmt.Errorf("VAD inference failed at window %d: %w", w, err)
		}
		probs = append(probs, prob)
	}

	return probs, nil
}

// runWindow performs a single model invocation and updates state in place.
func (d *SileroDetector) runWindow(window, state []float32, srTensor *ort.Tensor[int64]) (float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(window))), window)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(stateLayers, 1, stateDim), state)
	if err != nil {
		return 0, fmt.Errorf("failed to create state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	outputs := make([]ort.Value, 2)
	if err := d.session.Run(
		[]ort.Value{inputTensor, stateTensor, srTensor},
		outputs,
	); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()
	defer outputs[1].Destroy()

	probTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("output tensor is not float32 type")
	}

	probData := probTensor.GetData()
	if len(probData) == 0 {
		return 0, fmt.Errorf("model returned empty probability output")
	}

	nextStateTensor, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("state tensor is not float32 type")
	}
	copy(state, nextStateTensor.GetData())

	return probData[0], nil
}

// Close releases the model session.
func (d *SileroDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	return nil
}
