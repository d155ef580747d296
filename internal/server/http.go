package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evanshlee/speaking-practice-aid/internal/config"
	"github.com/evanshlee/speaking-practice-aid/internal/metrics"
	"github.com/evanshlee/speaking-practice-aid/internal/pipeline"
	"github.com/evanshlee/speaking-practice-aid/internal/session"
	"github.com/evanshlee/speaking-practice-aid/internal/transcription"
)

// Processor runs the report pipeline for an uploaded recording.
type Processor interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// TranscriptionStatsProvider exposes transcription client statistics for the
// stats endpoints.
type TranscriptionStatsProvider interface {
	GetStats() transcription.ClientStats
}

// HTTPServer provides the practice report API.
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	processor Processor
	store     *session.Store
	sttStats  TranscriptionStatsProvider
	metrics   *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates the API server.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger,
	processor Processor, store *session.Store, sttStats TranscriptionStatsProvider, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		processor: processor,
		store:     store,
		sttStats:  sttStats,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Report generation endpoint
	mux.HandleFunc("/transcribe", h.withMetrics("/transcribe", h.handleTranscribe))

	// Stored report endpoints
	mux.HandleFunc("/reports", h.withMetrics("/reports", h.handleReports))
	mux.HandleFunc("/reports/", h.withMetrics("/reports/{id}", h.handleReportDetail))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// Handler returns the server's root handler.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// handleTranscribe implements the POST /transcribe endpoint. The upload is
// written to a temporary file, run through the pipeline, and the resulting
// report is stored and returned.
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)

	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing audio file field")
		return
	}
	defer file.Close()

	req := pipeline.Request{}

	if v := r.FormValue("pause_threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pause_threshold: %q", v))
			return
		}
		req.PauseThreshold = threshold
	}
	req.ModelSize = r.FormValue("model_size")

	// Informational tag distinguishing live recordings from file uploads.
	source := r.FormValue("source")
	if source == "" {
		source = header.Filename
	}

	inputPath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to save upload", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	defer os.Remove(inputPath)
	req.InputPath = inputPath

	result, err := h.processor.Run(r.Context(), req)
	if err != nil {
		h.writePipelineError(w, r, source, err)
		return
	}

	stored := h.store.Add(source, result)

	response := map[string]interface{}{
		"report_id":       stored.ID,
		"report":          result.Report,
		"stats":           result.Stats,
		"pause_threshold": result.PauseThreshold,
		"model_size":      result.ModelSize,
		"generated_at":    result.GeneratedAt.UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// saveUpload writes the uploaded recording to the configured temp directory.
func (h *HTTPServer) saveUpload(file io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}

	tmp, err := os.CreateTemp(h.config.Audio.TempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return tmp.Name(), nil
}

// writePipelineError maps pipeline failures to HTTP status codes. Rejected
// run parameters are client errors; stage failures are server side.
func (h *HTTPServer) writePipelineError(w http.ResponseWriter, r *http.Request, source string, err error) {
	if errors.Is(err, pipeline.ErrInvalidConfig) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		h.logger.Error("Report run failed",
			slog.String("source", source),
			slog.String("stage", stageErr.Stage),
			slog.String("error", stageErr.Err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("report generation failed in %s stage", stageErr.Stage))
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.writeError(w, http.StatusRequestTimeout, "request cancelled")
		return
	}

	h.logger.Error("Report run failed",
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
	h.writeError(w, http.StatusInternalServerError, "report generation failed")
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleReports implements the GET /reports endpoint
func (h *HTTPServer) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reports := h.store.List()

	summaries := make([]map[string]interface{}, 0, len(reports))
	for _, stored := range reports {
		summaries = append(summaries, map[string]interface{}{
			"id":         stored.ID,
			"source":     stored.Source,
			"created_at": stored.CreatedAt.UTC(),
			"stats":      stored.Result.Stats,
		})
	}

	response := map[string]interface{}{
		"total_reports": len(summaries),
		"timestamp":     time.Now().UTC(),
		"reports":       summaries,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleReportDetail implements the /reports/{id} endpoint
func (h *HTTPServer) handleReportDetail(w http.ResponseWriter, r *http.Request) {
	reportID := r.URL.Path[len("/reports/"):]
	if reportID == "" {
		http.Error(w, "Report ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		stored, exists := h.store.Get(reportID)
		if !exists {
			http.Error(w, "Report not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stored)

	case http.MethodDelete:
		if !h.store.Remove(reportID) {
			http.Error(w, "Report not found", http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	sttStats := h.sttStats.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "speaking-practice-aid",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"report_store": map[string]interface{}{
				"status":         "running",
				"stored_reports": h.store.Count(),
			},
			"transcription": map[string]interface{}{
				"status":          "running",
				"total_requests":  sttStats.TotalRequests,
				"success_rate":    sttStats.SuccessRate,
				"active_requests": sttStats.ActiveRequests,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":            h.config.Server.Port,
			"address":         h.config.Server.Address,
			"max_upload_size": h.config.Server.MaxUploadSize,
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"bit_depth":   h.config.Audio.BitDepth,
		},
		"vad": map[string]interface{}{
			"model_path":           h.config.VAD.ModelPath,
			"threshold":            h.config.VAD.Threshold,
			"window_size":          h.config.VAD.WindowSize,
			"min_speech_duration":  h.config.VAD.MinSpeechDuration,
			"min_silence_duration": h.config.VAD.MinSilenceDuration,
		},
		"transcription": map[string]interface{}{
			"endpoint":       h.config.Transcription.Endpoint,
			"language":       h.config.Transcription.Language,
			"timeout":        h.config.Transcription.Timeout,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
			// Note: API key is intentionally omitted for security
		},
		"pipeline": map[string]interface{}{
			"default_pause_threshold": h.config.Pipeline.DefaultPauseThreshold,
			"default_model_size":      h.config.Pipeline.DefaultModelSize,
			"max_concurrent":          h.config.Pipeline.MaxConcurrent,
			"model_sizes":             config.ModelSizes,
		},
		"session": map[string]interface{}{
			"max_reports": h.config.Session.MaxReports,
			"report_ttl":  h.config.Session.ReportTTL,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"reports": map[string]interface{}{
			"stored_count": h.store.Count(),
		},
		"transcription": h.sttStats.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Speaking Practice Aid",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                    "API documentation",
			"POST /transcribe":         "Generate a practice report from an audio upload",
			"GET /reports":             "List stored reports",
			"GET /reports/{id}":        "Get a stored report",
			"DELETE /reports/{id}":     "Delete a stored report",
			"GET /health":              "Service health check",
			"GET /config":              "Get service configuration",
			"GET /stats":               "Get service statistics",
			"GET /metrics":             "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
