// Package timeline merges voice-activity intervals and transcript segments
// into a single ordered event timeline with pause markers, and computes the
// summary statistics for the practice report.
package timeline
