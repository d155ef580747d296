package vad

import (
	"math"
	"testing"

	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
)

// windowDur matches a 512-sample window at 16 kHz.
const windowDur = 0.032

func defaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		Threshold:          0.5,
		WindowDuration:     windowDur,
		MinSpeechDuration:  0.064,
		MinSilenceDuration: 0.064,
	}
}

func repeat(p float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func TestIntervalsFromProbabilitiesAllSilence(t *testing.T) {
	probs := repeat(0.05, 10)
	total := float64(len(probs)) * windowDur

	intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d: %v", len(intervals), intervals)
	}
	if intervals[0].Kind != timeline.Silence {
		t.Errorf("expected silence, got %v", intervals[0].Kind)
	}
	if intervals[0].Start != 0 || intervals[0].End != total {
		t.Errorf("expected [0, %f), got [%f, %f)", total, intervals[0].Start, intervals[0].End)
	}
}

func TestIntervalsFromProbabilitiesAllSpeech(t *testing.T) {
	probs := repeat(0.9, 10)
	total := float64(len(probs)) * windowDur

	intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d: %v", len(intervals), intervals)
	}
	if intervals[0].Kind != timeline.Speech {
		t.Errorf("expected speech, got %v", intervals[0].Kind)
	}
}

func TestIntervalsFromProbabilitiesSpeechSilenceSpeech(t *testing.T) {
	var probs []float32
	probs = append(probs, repeat(0.9, 20)...)  // speech
	probs = append(probs, repeat(0.05, 40)...) // long silence
	probs = append(probs, repeat(0.9, 20)...)  // speech
	total := float64(len(probs)) * windowDur

	intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

	if len(intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d: %v", len(intervals), intervals)
	}

	wantKinds := []timeline.IntervalKind{timeline.Speech, timeline.Silence, timeline.Speech}
	for i, k := range wantKinds {
		if intervals[i].Kind != k {
			t.Errorf("interval %d: expected %v, got %v", i, k, intervals[i].Kind)
		}
	}
}

func TestIntervalsFromProbabilitiesBridgesShortSilence(t *testing.T) {
	// Single sub-minimum silence window splitting two speech runs must be
	// absorbed into one continuous speech interval.
	var probs []float32
	probs = append(probs, repeat(0.9, 10)...)
	probs = append(probs, 0.05)
	probs = append(probs, repeat(0.9, 10)...)
	total := float64(len(probs)) * windowDur

	intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

	if len(intervals) != 1 {
		t.Fatalf("expected bridged single interval, got %d: %v", len(intervals), intervals)
	}
	if intervals[0].Kind != timeline.Speech {
		t.Errorf("expected speech, got %v", intervals[0].Kind)
	}
}

func TestIntervalsFromProbabilitiesDropsShortSpeech(t *testing.T) {
	// One lone high-probability window is shorter than MinSpeechDuration
	// and must be reclassified as silence.
	var probs []float32
	probs = append(probs, repeat(0.05, 10)...)
	probs = append(probs, 0.9)
	probs = append(probs, repeat(0.05, 10)...)
	total := float64(len(probs)) * windowDur

	intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d: %v", len(intervals), intervals)
	}
	if intervals[0].Kind != timeline.Silence {
		t.Errorf("expected silence, got %v", intervals[0].Kind)
	}
}

func TestIntervalsFromProbabilitiesHysteresis(t *testing.T) {
	// A dip below the entry threshold but above the exit threshold must not
	// terminate the speech run.
	var probs []float32
	probs = append(probs, repeat(0.9, 10)...)
	probs = append(probs, repeat(0.4, 5)...) // below 0.5 entry, above 0.35 exit
	probs = append(probs, repeat(0.9, 10)...)
	total := float64(len(probs)) * windowDur

	intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

	if len(intervals) != 1 {
		t.Fatalf("expected continuous speech, got %d intervals: %v", len(intervals), intervals)
	}
	if intervals[0].Kind != timeline.Speech {
		t.Errorf("expected speech, got %v", intervals[0].Kind)
	}
}

func TestIntervalsFromProbabilitiesCoverage(t *testing.T) {
	// Any probability pattern must yield contiguous coverage of the whole
	// recording, alternating kinds.
	patterns := [][]float32{
		repeat(0.05, 50),
		repeat(0.9, 50),
		append(append(repeat(0.9, 15), repeat(0.05, 30)...), repeat(0.9, 15)...),
		append(repeat(0.05, 30), repeat(0.9, 30)...),
		append(repeat(0.9, 30), repeat(0.05, 30)...),
	}

	for i, probs := range patterns {
		total := float64(len(probs)) * windowDur
		intervals := IntervalsFromProbabilities(probs, total, defaultSegmenterConfig())

		if len(intervals) == 0 {
			t.Fatalf("pattern %d: no intervals", i)
		}
		if intervals[0].Start != 0 {
			t.Errorf("pattern %d: first interval starts at %f, want 0", i, intervals[0].Start)
		}
		last := intervals[len(intervals)-1]
		if math.Abs(last.End-total) > 1e-9 {
			t.Errorf("pattern %d: last interval ends at %f, want %f", i, last.End, total)
		}
		for j := 1; j < len(intervals); j++ {
			if intervals[j].Start != intervals[j-1].End {
				t.Errorf("pattern %d: gap between interval %d and %d", i, j-1, j)
			}
			if intervals[j].Kind == intervals[j-1].Kind {
				t.Errorf("pattern %d: consecutive intervals %d and %d share kind %v", i, j-1, j, intervals[j].Kind)
			}
		}
	}
}

func TestIntervalsFromProbabilitiesEmptyInput(t *testing.T) {
	if got := IntervalsFromProbabilities(nil, 0, defaultSegmenterConfig()); got != nil {
		t.Errorf("expected nil for zero duration, got %v", got)
	}

	// Zero probabilities with a positive duration still yields full
	// silence coverage.
	got := IntervalsFromProbabilities(nil, 1.0, defaultSegmenterConfig())
	if len(got) != 1 || got[0].Kind != timeline.Silence {
		t.Errorf("expected single silence interval, got %v", got)
	}
}
