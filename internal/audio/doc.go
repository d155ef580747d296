// Package audio normalizes input recordings into the canonical mono 16 kHz
// PCM format shared by the detection and recognition engines, and provides
// WAV encoding and decoding helpers for that format.
package audio
