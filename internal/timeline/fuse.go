package timeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Pause threshold bounds in seconds. Values outside this range are rejected
// before any work is done.
const (
	MinPauseThreshold = 0.4
	MaxPauseThreshold = 1.2
)

// coverageEpsilon absorbs float rounding when checking that detector
// intervals are contiguous. Anything larger is a real coverage gap.
const coverageEpsilon = 1e-6

// ErrInvalidInput reports a structurally invalid interval or segment
// sequence, or an out-of-range pause threshold.
var ErrInvalidInput = errors.New("invalid input")

// Fuse merges detector intervals and transcript segments into one timeline
// ordered by timestamp and computes the summary statistics.
//
// Every silence interval whose duration meets or exceeds pauseThreshold
// becomes a pause event; shorter silences are micro-gaps within continuous
// speech and produce no marker. Every segment becomes a text event at its
// start time with its text unmodified. When a pause and a text event share a
// timestamp the pause is emitted first, since a pause precedes the speech it
// gates.
func Fuse(intervals []Interval, segments []TranscriptSegment, pauseThreshold float64) ([]Event, Stats, error) {
	if err := validateIntervals(intervals); err != nil {
		return nil, Stats{}, err
	}
	if err := validateSegments(segments); err != nil {
		return nil, Stats{}, err
	}
	if pauseThreshold < MinPauseThreshold || pauseThreshold > MaxPauseThreshold {
		return nil, Stats{}, fmt.Errorf("%w: pause threshold %.3f outside [%.1f, %.1f]",
			ErrInvalidInput, pauseThreshold, MinPauseThreshold, MaxPauseThreshold)
	}

	pauses := make([]Event, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Kind == Silence && iv.Duration() >= pauseThreshold {
			pauses = append(pauses, Event{
				Kind:      EventPause,
				Timestamp: iv.Start,
				Duration:  iv.Duration(),
			})
		}
	}

	texts := make([]Event, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, Event{
			Kind:      EventText,
			Timestamp: seg.Start,
			Text:      seg.Text,
		})
	}

	events := mergeEvents(pauses, texts)

	stats := computeStats(intervals, segments)

	return events, stats, nil
}

// validateIntervals enforces the detector output contract: non-empty,
// positive-length intervals that contiguously cover [0, total).
func validateIntervals(intervals []Interval) error {
	if len(intervals) == 0 {
		return fmt.Errorf("%w: detector returned no intervals", ErrInvalidInput)
	}

	if math.Abs(intervals[0].Start) > coverageEpsilon {
		return fmt.Errorf("%w: interval coverage must start at 0, got %.6f",
			ErrInvalidInput, intervals[0].Start)
	}

	prevEnd := intervals[0].Start
	for i, iv := range intervals {
		if iv.End <= iv.Start {
			return fmt.Errorf("%w: interval %d has end %.6f <= start %.6f",
				ErrInvalidInput, i, iv.End, iv.Start)
		}
		if math.Abs(iv.Start-prevEnd) > coverageEpsilon {
			return fmt.Errorf("%w: coverage gap between %.6f and %.6f",
				ErrInvalidInput, prevEnd, iv.Start)
		}
		prevEnd = iv.End
	}

	return nil
}

// validateSegments enforces the transcription output contract: ordered by
// start, start <= end, non-empty trimmed text. Malformed segments abort the
// whole fuse; they are never silently dropped.
func validateSegments(segments []TranscriptSegment) error {
	prevStart := math.Inf(-1)
	for i, seg := range segments {
		if seg.End < seg.Start {
			return fmt.Errorf("%w: segment %d has end %.6f < start %.6f",
				ErrInvalidInput, i, seg.End, seg.Start)
		}
		if strings.TrimSpace(seg.Text) == "" {
			return fmt.Errorf("%w: segment %d has empty text", ErrInvalidInput, i)
		}
		if seg.Start < prevStart {
			return fmt.Errorf("%w: segment %d start %.6f precedes previous start %.6f",
				ErrInvalidInput, i, seg.Start, prevStart)
		}
		prevStart = seg.Start
	}
	return nil
}

// mergeEvents interleaves the two already-ordered event slices by timestamp.
// Ties go to the pause event. The relative order within each input is
// preserved, so overlapping segments stay in adapter order.
func mergeEvents(pauses, texts []Event) []Event {
	merged := make([]Event, 0, len(pauses)+len(texts))

	pi, ti := 0, 0
	for pi < len(pauses) && ti < len(texts) {
		if pauses[pi].Timestamp <= texts[ti].Timestamp {
			merged = append(merged, pauses[pi])
			pi++
		} else {
			merged = append(merged, texts[ti])
			ti++
		}
	}
	merged = append(merged, pauses[pi:]...)
	merged = append(merged, texts[ti:]...)

	return merged
}

func computeStats(intervals []Interval, segments []TranscriptSegment) Stats {
	var speech float64
	for _, iv := range intervals {
		if iv.Kind == Speech {
			speech += iv.Duration()
		}
	}
	total := intervals[len(intervals)-1].End

	words := 0
	for _, seg := range segments {
		words += len(strings.Fields(seg.Text))
	}

	// Words per minute over speech time only, so pauses do not depress the
	// rate. Zero speech yields zero WPM, not a division error.
	wpm := 0
	if speech > 0 {
		wpm = int(math.Round(float64(words) / (speech / 60.0)))
	}

	return Stats{
		TotalDuration:   total,
		SpeechDuration:  speech,
		SilenceDuration: total - speech,
		WordCount:       words,
		WPM:             wpm,
	}
}
