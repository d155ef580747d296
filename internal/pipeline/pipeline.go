package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evanshlee/speaking-practice-aid/internal/audio"
	"github.com/evanshlee/speaking-practice-aid/internal/config"
	"github.com/evanshlee/speaking-practice-aid/internal/metrics"
	"github.com/evanshlee/speaking-practice-aid/internal/report"
	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
	"github.com/evanshlee/speaking-practice-aid/internal/transcription"
	"github.com/evanshlee/speaking-practice-aid/internal/vad"
)

// Normalizer converts an uploaded recording into canonical mono 16 kHz WAV.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) ([]byte, error)
}

// Request describes one report run. Zero values fall back to the configured
// defaults.
type Request struct {
	InputPath      string
	PauseThreshold float64
	ModelSize      string
}

// Result is a completed report run.
type Result struct {
	Report         string           `json:"report"`
	Stats          timeline.Stats   `json:"stats"`
	Events         []timeline.Event `json:"events"`
	PauseThreshold float64          `json:"pause_threshold"`
	ModelSize      string           `json:"model_size"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// Runner orchestrates the report pipeline: normalize the upload, run voice
// activity detection and transcription in parallel, fuse the two into a
// timeline, and render the report.
type Runner struct {
	normalizer  Normalizer
	detector    vad.Detector
	transcriber transcription.Transcriber
	metrics     *metrics.Metrics
	logger      *slog.Logger
	config      config.PipelineConfig
	semaphore   chan struct{} // bounds concurrent runs

	now func() time.Time
}

// NewRunner creates a pipeline runner.
func NewRunner(
	cfg config.PipelineConfig,
	normalizer Normalizer,
	detector vad.Detector,
	transcriber transcription.Transcriber,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Runner {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Runner{
		normalizer:  normalizer,
		detector:    detector,
		transcriber: transcriber,
		metrics:     m,
		logger:      logger,
		config:      cfg,
		semaphore:   make(chan struct{}, maxConcurrent),
		now:         time.Now,
	}
}

// Run executes the pipeline for one recording. Run parameters are validated
// before any stage executes; a failing run produces no partial report.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	pauseThreshold := req.PauseThreshold
	if pauseThreshold == 0 {
		pauseThreshold = r.config.DefaultPauseThreshold
	}

	modelSize := req.ModelSize
	if modelSize == "" {
		modelSize = r.config.DefaultModelSize
	}

	if pauseThreshold < timeline.MinPauseThreshold || pauseThreshold > timeline.MaxPauseThreshold {
		return nil, fmt.Errorf("%w: pause threshold %.2f outside [%.1f, %.1f]",
			ErrInvalidConfig, pauseThreshold, timeline.MinPauseThreshold, timeline.MaxPauseThreshold)
	}

	if !config.IsValidModelSize(modelSize) {
		return nil, fmt.Errorf("%w: unknown model size %q", ErrInvalidConfig, modelSize)
	}

	if req.InputPath == "" {
		return nil, fmt.Errorf("%w: input path cannot be empty", ErrInvalidConfig)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.metrics.PipelineStarted()
	defer r.metrics.PipelineFinished()

	runStart := r.now()
	logger := r.logger.With("input", req.InputPath, "model_size", modelSize)
	logger.Info("starting report run", "pause_threshold", pauseThreshold)

	wav, err := r.runNormalize(ctx, logger, req.InputPath)
	if err != nil {
		return nil, err
	}

	samples, sampleRate, err := audio.DecodeWAV(wav)
	if err != nil {
		r.metrics.RecordReportFailed(StageNormalize)
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}

	intervals, segments, err := r.runAnalysis(ctx, logger, wav, samples, sampleRate, modelSize)
	if err != nil {
		return nil, err
	}

	fuseStart := r.now()
	events, stats, err := timeline.Fuse(intervals, segments, pauseThreshold)
	if err != nil {
		r.metrics.RecordReportFailed(StageFuse)
		return nil, &StageError{Stage: StageFuse, Err: err}
	}
	r.metrics.RecordStageDuration(StageFuse, time.Since(fuseStart).Seconds())

	generatedAt := r.now()
	text := report.Render(generatedAt, stats, events)

	pauses := 0
	for _, e := range events {
		if e.Kind == timeline.EventPause {
			pauses++
		}
	}

	speechRatio := 0.0
	if stats.TotalDuration > 0 {
		speechRatio = stats.SpeechDuration / stats.TotalDuration
	}
	r.metrics.RecordReportGenerated(
		time.Since(runStart).Seconds(),
		stats.TotalDuration,
		speechRatio,
		stats.WordCount,
		pauses,
	)

	logger.Info("report run complete",
		"duration_s", stats.TotalDuration,
		"words", stats.WordCount,
		"pauses", pauses,
		"elapsed", time.Since(runStart))

	return &Result{
		Report:         text,
		Stats:          stats,
		Events:         events,
		PauseThreshold: pauseThreshold,
		ModelSize:      modelSize,
		GeneratedAt:    generatedAt,
	}, nil
}

func (r *Runner) runNormalize(ctx context.Context, logger *slog.Logger, inputPath string) ([]byte, error) {
	start := r.now()
	wav, err := r.normalizer.Normalize(ctx, inputPath)
	if err != nil {
		r.metrics.RecordReportFailed(StageNormalize)
		logger.Error("normalization failed", "error", err)
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}
	r.metrics.RecordStageDuration(StageNormalize, time.Since(start).Seconds())

	return wav, nil
}

// runAnalysis executes voice activity detection and transcription
// concurrently. The two stages consume the same normalized audio and do not
// depend on each other.
func (r *Runner) runAnalysis(
	ctx context.Context,
	logger *slog.Logger,
	wav []byte,
	samples []int16,
	sampleRate int,
	modelSize string,
) ([]timeline.Interval, []timeline.TranscriptSegment, error) {
	var (
		intervals []timeline.Interval
		segments  []timeline.TranscriptSegment
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		start := r.now()
		result, err := r.detector.Detect(groupCtx, samples, sampleRate)
		if err != nil {
			r.metrics.RecordReportFailed(StageDetect)
			logger.Error("voice activity detection failed", "error", err)
			return &StageError{Stage: StageDetect, Err: err}
		}
		r.metrics.RecordStageDuration(StageDetect, time.Since(start).Seconds())

		intervals = result
		return nil
	})

	group.Go(func() error {
		start := r.now()
		r.metrics.RecordTranscriptionRequest()
		result, err := r.transcriber.Transcribe(groupCtx, wav, modelSize)
		if err != nil {
			r.metrics.RecordTranscriptionFailure(time.Since(start).Seconds())
			r.metrics.RecordReportFailed(StageTranscribe)
			logger.Error("transcription failed", "error", err)
			return &StageError{Stage: StageTranscribe, Err: err}
		}
		r.metrics.RecordTranscriptionSuccess(time.Since(start).Seconds())
		r.metrics.RecordStageDuration(StageTranscribe, time.Since(start).Seconds())

		segments = result
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	return intervals, segments, nil
}
