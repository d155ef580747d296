package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Session       SessionConfig       `yaml:"session"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP API server configuration
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Address       string `yaml:"address"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // bytes
	ReadTimeout   int    `yaml:"read_timeout"`    // seconds
	WriteTimeout  int    `yaml:"write_timeout"`   // seconds
}

// AudioConfig contains the canonical audio format and normalizer settings
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	BitDepth   int    `yaml:"bit_depth"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	TempDir    string `yaml:"temp_dir"`
}

// VADConfig contains Voice Activity Detection configuration
type VADConfig struct {
	ModelPath          string  `yaml:"model_path"`
	LibraryPath        string  `yaml:"library_path"` // onnxruntime shared library
	Threshold          float32 `yaml:"threshold"`
	WindowSize         int     `yaml:"window_size"`          // samples
	MinSpeechDuration  float64 `yaml:"min_speech_duration"`  // seconds
	MinSilenceDuration float64 `yaml:"min_silence_duration"` // seconds
}

// TranscriptionConfig contains speech-to-text engine configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Language      string `yaml:"language"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// PipelineConfig contains per-request defaults and limits for the
// transcription pipeline
type PipelineConfig struct {
	DefaultPauseThreshold float64 `yaml:"default_pause_threshold"` // seconds
	DefaultModelSize      string  `yaml:"default_model_size"`
	MaxConcurrent         int     `yaml:"max_concurrent"`
}

// SessionConfig contains in-memory report store configuration
type SessionConfig struct {
	MaxReports int `yaml:"max_reports"`
	ReportTTL  int `yaml:"report_ttl"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ModelSizes lists the accepted speech-to-text model sizes.
var ModelSizes = []string{"tiny", "base", "small"}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.MaxUploadSize < 1024 {
		return fmt.Errorf("max_upload_size must be at least 1024 bytes, got %d", s.MaxUploadSize)
	}

	if s.ReadTimeout < 1 || s.WriteTimeout < 1 {
		return fmt.Errorf("read_timeout and write_timeout must be at least 1 second")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the detection and recognition engines, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty")
	}

	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", v.Threshold)
	}

	if v.WindowSize < 256 || v.WindowSize > 2048 {
		return fmt.Errorf("window_size must be between 256 and 2048 samples, got %d", v.WindowSize)
	}

	if v.MinSpeechDuration <= 0 {
		return fmt.Errorf("min_speech_duration must be positive, got %f", v.MinSpeechDuration)
	}

	if v.MinSilenceDuration <= 0 {
		return fmt.Errorf("min_silence_duration must be positive, got %f", v.MinSilenceDuration)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates pipeline configuration
func (p *PipelineConfig) Validate() error {
	if p.DefaultPauseThreshold < timeline.MinPauseThreshold ||
		p.DefaultPauseThreshold > timeline.MaxPauseThreshold {
		return fmt.Errorf("default_pause_threshold must be between %.1f and %.1f, got %f",
			timeline.MinPauseThreshold, timeline.MaxPauseThreshold, p.DefaultPauseThreshold)
	}

	if !IsValidModelSize(p.DefaultModelSize) {
		return fmt.Errorf("default_model_size must be one of %v, got '%s'", ModelSizes, p.DefaultModelSize)
	}

	if p.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", p.MaxConcurrent)
	}

	return nil
}

// Validate validates session store configuration
func (s *SessionConfig) Validate() error {
	if s.MaxReports < 1 {
		return fmt.Errorf("max_reports must be at least 1, got %d", s.MaxReports)
	}

	if s.ReportTTL < 1 {
		return fmt.Errorf("report_ttl must be at least 1 second, got %d", s.ReportTTL)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output accepts stdout, stderr, or a file path.
	return nil
}

// IsValidModelSize reports whether size is an accepted model size.
func IsValidModelSize(size string) bool {
	for _, s := range ModelSizes {
		if s == size {
			return true
		}
	}
	return false
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetMinSpeechDuration returns the minimum speech duration as a time.Duration
func (v *VADConfig) GetMinSpeechDuration() time.Duration {
	return time.Duration(v.MinSpeechDuration * float64(time.Second))
}

// GetMinSilenceDuration returns the minimum silence duration as a time.Duration
func (v *VADConfig) GetMinSilenceDuration() time.Duration {
	return time.Duration(v.MinSilenceDuration * float64(time.Second))
}

// GetReportTTLDuration returns the report TTL as a time.Duration
func (s *SessionConfig) GetReportTTLDuration() time.Duration {
	return time.Duration(s.ReportTTL) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a time.Duration
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a time.Duration
func (s *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}
