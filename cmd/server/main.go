package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanshlee/speaking-practice-aid/internal/audio"
	"github.com/evanshlee/speaking-practice-aid/internal/config"
	"github.com/evanshlee/speaking-practice-aid/internal/metrics"
	"github.com/evanshlee/speaking-practice-aid/internal/pipeline"
	"github.com/evanshlee/speaking-practice-aid/internal/server"
	"github.com/evanshlee/speaking-practice-aid/internal/session"
	"github.com/evanshlee/speaking-practice-aid/internal/transcription"
	"github.com/evanshlee/speaking-practice-aid/internal/vad"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "speaking-practice-aid"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.Server.Port),
		slog.String("address", cfg.Server.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("vad_model_path", cfg.VAD.ModelPath),
		slog.Float64("vad_threshold", float64(cfg.VAD.Threshold)),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.Float64("default_pause_threshold", cfg.Pipeline.DefaultPauseThreshold),
		slog.String("default_model_size", cfg.Pipeline.DefaultModelSize),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize audio normalizer
	normalizer, err := audio.NewNormalizer(cfg.Audio.FFmpegPath, cfg.Audio.SampleRate, cfg.Audio.TempDir)
	if err != nil {
		logger.Error("Failed to create audio normalizer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Audio normalizer initialized",
		slog.String("ffmpeg_path", cfg.Audio.FFmpegPath),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
	)

	// Initialize voice activity detector
	detector, err := vad.NewSileroDetector(vad.Config{
		ModelPath:          cfg.VAD.ModelPath,
		LibraryPath:        cfg.VAD.LibraryPath,
		Threshold:          cfg.VAD.Threshold,
		WindowSize:         cfg.VAD.WindowSize,
		MinSpeechDuration:  cfg.VAD.MinSpeechDuration,
		MinSilenceDuration: cfg.VAD.MinSilenceDuration,
	})
	if err != nil {
		logger.Error("Failed to create voice activity detector", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer detector.Close()
	logger.Info("Voice activity detector initialized",
		slog.String("model_path", cfg.VAD.ModelPath),
		slog.Int("window_size", cfg.VAD.WindowSize),
	)

	// Initialize transcription client
	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Language:      cfg.Transcription.Language,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription client initialized",
		slog.String("endpoint", cfg.Transcription.Endpoint),
		slog.String("language", cfg.Transcription.Language),
	)

	// Initialize report pipeline
	runner := pipeline.NewRunner(cfg.Pipeline, normalizer, detector, transcriber, appMetrics, logger)
	logger.Info("Report pipeline initialized",
		slog.Int("max_concurrent", cfg.Pipeline.MaxConcurrent),
	)

	// Initialize report store
	store := session.NewStore(session.StoreConfig{
		MaxReports: cfg.Session.MaxReports,
		ReportTTL:  cfg.Session.GetReportTTLDuration(),
	}, appMetrics, logger)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, runner, store, transcriber, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Drain the transcription client before tearing down the store
	if err := transcriber.Close(); err != nil {
		logger.Warn("Error closing transcription client", slog.String("error", err.Error()))
	}

	// Stop report store (cleanup routine)
	store.Stop()

	// Log final statistics
	sttStats := transcriber.GetStats()
	logger.Info("Final transcription statistics",
		slog.Uint64("total_requests", sttStats.TotalRequests),
		slog.Uint64("successful_requests", sttStats.SuccessRequests),
		slog.Float64("success_rate", sttStats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
