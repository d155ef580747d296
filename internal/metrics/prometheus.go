package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speaking practice service
type Metrics struct {
	// Report pipeline metrics
	ReportsGenerated prometheus.Counter
	ReportsFailed    *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	ActivePipelines  prometheus.Gauge

	// Recording metrics
	RecordingDuration prometheus.Histogram
	SpeechRatio       prometheus.Histogram
	WordsPerReport    prometheus.Histogram
	PausesPerReport   prometheus.Histogram

	// VAD metrics
	VADWindowsProcessed prometheus.Counter
	VADVoiceDetected    prometheus.Counter
	VADProcessingTime   prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Session store metrics
	StoredReports  prometheus.Gauge
	ReportsEvicted prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics on the given registerer
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Report pipeline metrics
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_reports_generated_total",
			Help: "Total number of practice reports generated",
		}),
		ReportsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spa_reports_failed_total",
			Help: "Total number of failed report runs by pipeline stage",
		}, []string{"stage"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_pipeline_duration_seconds",
			Help:    "End-to-end report pipeline duration",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8 minutes
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spa_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~3 minutes
		}, []string{"stage"}),
		ActivePipelines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spa_active_pipelines",
			Help: "Current number of report pipelines in flight",
		}),

		// Recording metrics
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_recording_duration_seconds",
			Help:    "Duration of processed recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		SpeechRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_speech_ratio",
			Help:    "Fraction of the recording classified as speech",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		WordsPerReport: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_words_per_report",
			Help:    "Word count per generated report",
			Buckets: prometheus.ExponentialBuckets(8, 2, 10), // 8 to ~4k words
		}),
		PausesPerReport: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_pauses_per_report",
			Help:    "Qualifying pause count per generated report",
			Buckets: prometheus.LinearBuckets(0, 5, 11), // 0 to 50 pauses
		}),

		// VAD metrics
		VADWindowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_vad_windows_processed_total",
			Help: "Total number of VAD windows processed",
		}),
		VADVoiceDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_vad_voice_detected_total",
			Help: "Total number of VAD windows with voice detected",
		}),
		VADProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_vad_processing_duration_seconds",
			Help:    "Time spent running voice activity detection",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		}),

		// Transcription metrics
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spa_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Session store metrics
		StoredReports: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spa_stored_reports",
			Help: "Current number of reports held in the session store",
		}),
		ReportsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "spa_reports_evicted_total",
			Help: "Total number of reports evicted from the session store",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spa_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spa_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordReportGenerated records a completed pipeline run and its outcome stats
func (m *Metrics) RecordReportGenerated(pipelineSeconds, recordingSeconds, speechRatio float64, words, pauses int) {
	m.ReportsGenerated.Inc()
	m.PipelineDuration.Observe(pipelineSeconds)
	m.RecordingDuration.Observe(recordingSeconds)
	m.SpeechRatio.Observe(speechRatio)
	m.WordsPerReport.Observe(float64(words))
	m.PausesPerReport.Observe(float64(pauses))
}

// RecordReportFailed records a failed pipeline run by stage
func (m *Metrics) RecordReportFailed(stage string) {
	m.ReportsFailed.WithLabelValues(stage).Inc()
}

// RecordStageDuration records the duration of a single pipeline stage
func (m *Metrics) RecordStageDuration(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// PipelineStarted increments the in-flight pipeline gauge
func (m *Metrics) PipelineStarted() {
	m.ActivePipelines.Inc()
}

// PipelineFinished decrements the in-flight pipeline gauge
func (m *Metrics) PipelineFinished() {
	m.ActivePipelines.Dec()
}

// RecordVADWindow increments VAD windows processed and optionally voice detected
func (m *Metrics) RecordVADWindow(hasVoice bool, processingTimeSeconds float64) {
	m.VADWindowsProcessed.Inc()
	if hasVoice {
		m.VADVoiceDetected.Inc()
	}
	m.VADProcessingTime.Observe(processingTimeSeconds)
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// SetStoredReports sets the current session store size
func (m *Metrics) SetStoredReports(count int) {
	m.StoredReports.Set(float64(count))
}

// RecordReportEvicted increments the eviction counter
func (m *Metrics) RecordReportEvicted() {
	m.ReportsEvicted.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
