package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/evanshlee/speaking-practice-aid/internal/timeline"
)

// Render serializes the summary statistics and fused timeline into the
// two-section report. The timeline is emitted exactly in the order produced
// by the fusion engine; no error conditions exist here because malformed
// input is rejected upstream.
func Render(date time.Time, stats timeline.Stats, events []timeline.Event) string {
	var b strings.Builder

	b.WriteString("=== A) SUMMARY ===\n")
	fmt.Fprintf(&b, "Date: %s\n", date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Duration: %.1fs (Speech: %.1fs, Silence: %.1fs)\n",
		stats.TotalDuration, stats.SpeechDuration, stats.SilenceDuration)
	fmt.Fprintf(&b, "Words: %d (Approx. %d WPM)\n", stats.WordCount, stats.WPM)
	b.WriteString(fillerLine(events))

	b.WriteString("\n=== B) TIMELINE ===\n")
	for _, ev := range events {
		switch ev.Kind {
		case timeline.EventPause:
			fmt.Fprintf(&b, "%s [PAUSE %.3fs]\n", formatTimestamp(ev.Timestamp), ev.Duration)
		case timeline.EventText:
			fmt.Fprintf(&b, "%s %s\n", formatTimestamp(ev.Timestamp), ev.Text)
		}
	}

	return b.String()
}

// formatTimestamp renders seconds as [MM:SS.mmm], minutes zero-padded to two
// digits and seconds zero-padded with three decimals.
func formatTimestamp(sec float64) string {
	minutes := int(sec) / 60
	secs := sec - float64(minutes*60)
	return fmt.Sprintf("[%02d:%06.3f]", minutes, secs)
}

// fillerLine builds the summary's filler-count line from the text events.
func fillerLine(events []timeline.Event) string {
	var texts []string
	for _, ev := range events {
		if ev.Kind == timeline.EventText {
			texts = append(texts, ev.Text)
		}
	}

	total, detail := CountFillers(strings.Join(texts, " "))
	if total == 0 {
		return "Fillers: 0\n"
	}
	return fmt.Sprintf("Fillers: %d (%s)\n", total, detail)
}
