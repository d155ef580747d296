// Package pipeline orchestrates the report generation flow from uploaded
// recording to rendered report text.
package pipeline
