package timeline

import (
	"errors"
	"math"
	"testing"
)

func TestFuseSpeechPauseSpeech(t *testing.T) {
	intervals := []Interval{
		{Start: 0, End: 5, Kind: Speech},
		{Start: 5, End: 6.5, Kind: Silence},
		{Start: 6.5, End: 10, Kind: Speech},
	}
	segments := []TranscriptSegment{
		{Start: 0, End: 5, Text: "So, um, I think so"},
		{Start: 6.5, End: 10, Text: "And basically, yes"},
	}

	events, stats, err := Fuse(intervals, segments, 0.6)
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}

	want := []Event{
		{Kind: EventText, Timestamp: 0, Text: "So, um, I think so"},
		{Kind: EventPause, Timestamp: 5, Duration: 1.5},
		{Kind: EventText, Timestamp: 6.5, Text: "And basically, yes"},
	}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev != want[i] {
			t.Errorf("Event %d: expected %+v, got %+v", i, want[i], ev)
		}
	}

	if stats.SpeechDuration != 8.5 {
		t.Errorf("Expected speech duration 8.5, got %v", stats.SpeechDuration)
	}
	if stats.SilenceDuration != 1.5 {
		t.Errorf("Expected silence duration 1.5, got %v", stats.SilenceDuration)
	}
	if stats.TotalDuration != 10 {
		t.Errorf("Expected total duration 10, got %v", stats.TotalDuration)
	}
	if stats.WordCount != 8 {
		t.Errorf("Expected 8 words, got %d", stats.WordCount)
	}
}

func TestFuseSubThresholdSilence(t *testing.T) {
	intervals := []Interval{
		{Start: 0, End: 5, Kind: Speech},
		{Start: 5, End: 5.3, Kind: Silence},
		{Start: 5.3, End: 8, Kind: Speech},
	}
	segments := []TranscriptSegment{
		{Start: 0, End: 8, Text: "continuous speech across a micro gap"},
	}

	events, _, err := Fuse(intervals, segments, 0.6)
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}

	for _, ev := range events {
		if ev.Kind == EventPause {
			t.Errorf("Sub-threshold silence must not produce a pause event, got %+v", ev)
		}
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 event, got %d", len(events))
	}
}

func TestFuseEmptySegments(t *testing.T) {
	intervals := []Interval{
		{Start: 0, End: 1, Kind: Speech},
		{Start: 1, End: 3, Kind: Silence},
		{Start: 3, End: 4, Kind: Speech},
	}

	events, stats, err := Fuse(intervals, nil, 0.6)
	if err != nil {
		t.Fatalf("Empty segments must be a valid result, got error: %v", err)
	}

	if len(events) != 1 || events[0].Kind != EventPause {
		t.Fatalf("Expected exactly one pause event, got %+v", events)
	}
	if stats.WordCount != 0 {
		t.Errorf("Expected word count 0, got %d", stats.WordCount)
	}
	if stats.WPM == 0 && stats.SpeechDuration > 0 {
		// Speech exists but no recognized words: WPM stays 0 by the formula.
		t.Logf("WPM 0 with %v speech seconds", stats.SpeechDuration)
	}
}

func TestFuseNoSpeechZeroWPM(t *testing.T) {
	intervals := []Interval{
		{Start: 0, End: 2, Kind: Silence},
	}

	_, stats, err := Fuse(intervals, nil, 0.6)
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}
	if stats.WPM != 0 {
		t.Errorf("Expected WPM 0 with no speech, got %d", stats.WPM)
	}
	if stats.SpeechDuration != 0 || stats.SilenceDuration != 2 {
		t.Errorf("Unexpected durations: %+v", stats)
	}
}

func TestFuseInvalidInputs(t *testing.T) {
	validIntervals := []Interval{{Start: 0, End: 5, Kind: Speech}}

	tests := []struct {
		name      string
		intervals []Interval
		segments  []TranscriptSegment
		threshold float64
	}{
		{
			name:      "empty intervals",
			intervals: nil,
			threshold: 0.6,
		},
		{
			name: "coverage gap",
			intervals: []Interval{
				{Start: 0, End: 3, Kind: Speech},
				{Start: 3.5, End: 6, Kind: Speech},
			},
			threshold: 0.6,
		},
		{
			name: "zero length interval",
			intervals: []Interval{
				{Start: 0, End: 0, Kind: Speech},
			},
			threshold: 0.6,
		},
		{
			name: "coverage not starting at zero",
			intervals: []Interval{
				{Start: 1, End: 4, Kind: Speech},
			},
			threshold: 0.6,
		},
		{
			name:      "threshold below range",
			intervals: validIntervals,
			threshold: 0.3,
		},
		{
			name:      "threshold above range",
			intervals: validIntervals,
			threshold: 1.3,
		},
		{
			name:      "segment with empty text",
			intervals: validIntervals,
			segments:  []TranscriptSegment{{Start: 0, End: 1, Text: "   "}},
			threshold: 0.6,
		},
		{
			name:      "segment end before start",
			intervals: validIntervals,
			segments:  []TranscriptSegment{{Start: 2, End: 1, Text: "backwards"}},
			threshold: 0.6,
		},
		{
			name:      "segments out of order",
			intervals: validIntervals,
			segments: []TranscriptSegment{
				{Start: 3, End: 4, Text: "second"},
				{Start: 1, End: 2, Text: "first"},
			},
			threshold: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Fuse(tt.intervals, tt.segments, tt.threshold)
			if err == nil {
				t.Fatalf("Expected error but got none")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestFusePauseBeforeTextAtSameTimestamp(t *testing.T) {
	intervals := []Interval{
		{Start: 0, End: 2, Kind: Speech},
		{Start: 2, End: 3, Kind: Silence},
		{Start: 3, End: 5, Kind: Speech},
	}
	// Segment starts exactly where the qualifying pause starts.
	segments := []TranscriptSegment{
		{Start: 2, End: 5, Text: "after the gap"},
	}

	events, _, err := Fuse(intervals, segments, 0.6)
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventPause || events[1].Kind != EventText {
		t.Errorf("Pause must precede text at a shared timestamp, got %+v", events)
	}
}

func TestFuseOverlappingSegmentsKeepAdapterOrder(t *testing.T) {
	intervals := []Interval{{Start: 0, End: 10, Kind: Speech}}
	segments := []TranscriptSegment{
		{Start: 1, End: 4, Text: "first"},
		{Start: 1, End: 3, Text: "second"},
	}

	events, _, err := Fuse(intervals, segments, 0.6)
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}
	if events[0].Text != "first" || events[1].Text != "second" {
		t.Errorf("Overlapping segments must keep adapter order, got %+v", events)
	}
}

func TestFuseProperties(t *testing.T) {
	intervals := []Interval{
		{Start: 0, End: 1.2, Kind: Silence},
		{Start: 1.2, End: 4.7, Kind: Speech},
		{Start: 4.7, End: 5.1, Kind: Silence},
		{Start: 5.1, End: 9.3, Kind: Speech},
		{Start: 9.3, End: 11, Kind: Silence},
	}
	segments := []TranscriptSegment{
		{Start: 1.3, End: 4.5, Text: "um well I was thinking"},
		{Start: 5.0, End: 9.2, Text: "that we could, you know, try again"},
	}
	const threshold = 0.8

	events, stats, err := Fuse(intervals, segments, threshold)
	if err != nil {
		t.Fatalf("Fuse failed: %v", err)
	}

	// Events are ordered by timestamp.
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			t.Errorf("Events out of order at %d: %v after %v",
				i, events[i].Timestamp, events[i-1].Timestamp)
		}
	}

	// Every pause event meets the threshold, and every qualifying silence
	// interval is present.
	pauseCount := 0
	for _, ev := range events {
		if ev.Kind != EventPause {
			continue
		}
		pauseCount++
		if ev.Duration < threshold {
			t.Errorf("Pause event below threshold: %+v", ev)
		}
	}
	wantPauses := 0
	for _, iv := range intervals {
		if iv.Kind == Silence && iv.Duration() >= threshold {
			wantPauses++
		}
	}
	if pauseCount != wantPauses {
		t.Errorf("Expected %d pause events, got %d", wantPauses, pauseCount)
	}

	// Durations add up exactly.
	if diff := math.Abs(stats.SpeechDuration + stats.SilenceDuration - stats.TotalDuration); diff > 1e-9 {
		t.Errorf("speech + silence != total (diff %g)", diff)
	}
	var covered float64
	for _, iv := range intervals {
		covered += iv.Duration()
	}
	if diff := math.Abs(covered - stats.TotalDuration); diff > 1e-9 {
		t.Errorf("Interval durations do not sum to total duration (diff %g)", diff)
	}
}
