package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Normalizer converts arbitrary input recordings into the canonical mono
// PCM-16 WAV format using ffmpeg. It is a pure transformation and holds no
// per-request state.
type Normalizer struct {
	ffmpegPath string
	sampleRate int
	tempDir    string
}

// NewNormalizer creates a normalizer targeting the given sample rate.
func NewNormalizer(ffmpegPath string, sampleRate int, tempDir string) (*Normalizer, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpeg path cannot be empty")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Normalizer{
		ffmpegPath: ffmpegPath,
		sampleRate: sampleRate,
		tempDir:    tempDir,
	}, nil
}

// Normalize decodes and resamples the recording at inputPath into canonical
// WAV bytes. The input container/codec can be anything ffmpeg understands;
// unreadable or empty audio is reported as an error, never as an empty
// result.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) ([]byte, error) {
	tmp, err := os.CreateTemp(n.tempDir, "normalized_*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	outPath := tmp.Name()
	tmp.Close()
	defer os.Remove(outPath)

	// ffmpeg -y -i input -ar 16000 -ac 1 -acodec pcm_s16le output
	cmd := exec.CommandContext(ctx, n.ffmpegPath,
		"-y",
		"-i", inputPath,
		"-ar", strconv.Itoa(n.sampleRate),
		"-ac", "1",
		"-acodec", "pcm_s16le",
		outPath,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for %s: %w: %s",
			filepath.Base(inputPath), err, lastLine(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read normalized audio: %w", err)
	}

	if _, err := Duration(data); err != nil {
		return nil, fmt.Errorf("normalizer produced invalid WAV: %w", err)
	}

	return data, nil
}

// lastLine extracts the final non-empty line of ffmpeg's stderr, which is
// where ffmpeg puts the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
