package vad

import (
	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
)

// hysteresisGap is subtracted from the speech threshold to form the exit
// threshold, so brief probability dips inside a word do not split speech.
const hysteresisGap = 0.15

// SegmenterConfig controls how per-window speech probabilities become
// intervals.
type SegmenterConfig struct {
	Threshold          float32
	WindowDuration     float64 // seconds covered by one probability
	MinSpeechDuration  float64 // speech runs shorter than this are dropped
	MinSilenceDuration float64 // silence runs shorter than this are bridged
}

// IntervalsFromProbabilities converts the model's per-window speech
// probabilities into an ordered, contiguous interval sequence covering
// [0, totalDuration). Entering speech requires the probability to reach
// Threshold; leaving it requires dropping below Threshold minus the
// hysteresis gap. Silence gaps shorter than MinSilenceDuration are merged
// into the surrounding speech, and speech runs shorter than
// MinSpeechDuration are reclassified as silence.
func IntervalsFromProbabilities(probs []float32, totalDuration float64, cfg SegmenterConfig) []timeline.Interval {
	if totalDuration <= 0 {
		return nil
	}

	exitThreshold := cfg.Threshold - hysteresisGap
	if exitThreshold < 0.01 {
		exitThreshold = 0.01
	}

	// Raw speech runs in seconds, with hysteresis.
	type run struct{ start, end float64 }
	var runs []run

	inSpeech := false
	var speechStart float64
	for i, p := range probs {
		t := float64(i) * cfg.WindowDuration
		if !inSpeech && p >= cfg.Threshold {
			inSpeech = true
			speechStart = t
		} else if inSpeech && p < exitThreshold {
			inSpeech = false
			runs = append(runs, run{start: speechStart, end: t})
		}
	}
	if inSpeech {
		runs = append(runs, run{start: speechStart, end: float64(len(probs)) * cfg.WindowDuration})
	}

	// Bridge sub-minimum silence gaps between consecutive runs.
	merged := runs[:0]
	for _, r := range runs {
		if len(merged) > 0 && r.start-merged[len(merged)-1].end < cfg.MinSilenceDuration {
			merged[len(merged)-1].end = r.end
			continue
		}
		merged = append(merged, r)
	}

	// Drop runs too short to be real speech, clamp to the recording length.
	kept := merged[:0]
	for _, r := range merged {
		if r.end > totalDuration {
			r.end = totalDuration
		}
		if r.end-r.start >= cfg.MinSpeechDuration {
			kept = append(kept, r)
		}
	}

	// Stitch full coverage: silence between and around the speech runs.
	intervals := make([]timeline.Interval, 0, 2*len(kept)+1)
	cursor := 0.0
	for _, r := range kept {
		if r.start > cursor {
			intervals = append(intervals, timeline.Interval{
				Start: cursor, End: r.start, Kind: timeline.Silence,
			})
		}
		intervals = append(intervals, timeline.Interval{
			Start: r.start, End: r.end, Kind: timeline.Speech,
		})
		cursor = r.end
	}
	if cursor < totalDuration {
		intervals = append(intervals, timeline.Interval{
			Start: cursor, End: totalDuration, Kind: timeline.Silence,
		})
	}

	return intervals
}
