// Package vad adapts the Silero VAD ONNX model into the detector contract:
// an ordered, contiguous sequence of speech and silence intervals covering
// the full duration of a normalized recording.
package vad
