// Package report renders a fused timeline and its summary statistics into
// the fixed plain-text practice report format. Rendering is pure: identical
// inputs always produce byte-identical output.
package report
