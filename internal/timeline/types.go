package timeline

// IntervalKind classifies a detector interval as speech or silence.
type IntervalKind int

const (
	Speech IntervalKind = iota
	Silence
)

// String returns a human-readable name for the interval kind.
func (k IntervalKind) String() string {
	switch k {
	case Speech:
		return "speech"
	case Silence:
		return "silence"
	default:
		return "unknown"
	}
}

// Interval is a half-open [Start, End) time range in seconds produced by the
// voice-activity detector. A valid detector sequence is ordered, contiguous
// and covers [0, total) with no gaps or overlaps.
type Interval struct {
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Kind  IntervalKind `json:"kind"`
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// TranscriptSegment is one timestamped piece of transcribed text. Segments
// are ordered by Start but may overlap or leave gaps relative to each other
// and to the detector intervals; that is model imprecision, not an error.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// EventKind distinguishes the two timeline event variants.
type EventKind int

const (
	// EventText marks the point in time where a transcript segment begins.
	EventText EventKind = iota
	// EventPause marks a silence interval at or above the pause threshold.
	EventPause
)

// Event is one entry of the fused timeline. Text is set for EventText,
// Duration for EventPause.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp float64   `json:"timestamp"`
	Text      string    `json:"text,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

// Stats holds the aggregate figures for the report summary block.
type Stats struct {
	TotalDuration   float64 `json:"total_duration"`
	SpeechDuration  float64 `json:"speech_duration"`
	SilenceDuration float64 `json:"silence_duration"`
	WordCount       int     `json:"word_count"`
	WPM             int     `json:"wpm"`
}
