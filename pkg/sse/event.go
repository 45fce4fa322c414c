// Package sse provides a minimal, purpose-built decoder for the
// server-sent-event-like progress stream returned by the backend's vector
// upload endpoint.
//
// The stream is a sequence of frames separated by a blank line. Within a frame
// only "data:" lines carry a payload, and every payload is a JSON document:
//
//	data: {"status":"processing","processed":100,"total":250,"percentage":40.0}
//
//	data: {"status":"completed","processed":250,"total":250,"percentage":100.0}
//
// The core of the package is Decode, a pure function that threads the
// unterminated trailing fragment (the pending buffer) through the caller.
// Decoder and Reader wrap it for callers that would rather not hold that
// state themselves.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
package sse

import (
	"encoding/json"
	"errors"
)

// ErrSnapshotRegressed is returned by Decoder.Feed when a cumulative snapshot
// is shorter than the bytes already decoded. Snapshots must only grow.
var ErrSnapshotRegressed = errors.New("sse: snapshot shorter than previously decoded stream")

// Event is a single JSON payload extracted from one "data:" line of a
// complete frame.
type Event struct {
	// Data is the payload text after the "data:" prefix with surrounding
	// whitespace trimmed. It is always valid JSON.
	Data string

	// Value is the generic encoding/json decoding of Data
	// (map[string]any, []any, string, float64, bool or nil).
	Value any
}

// Unmarshal decodes the event payload into v.
func (e Event) Unmarshal(v any) error {
	return json.Unmarshal([]byte(e.Data), v)
}

// SkippedLine describes a "data:" line whose payload was not valid JSON.
// Skipping is never fatal; the line is reported so callers can log or count it.
type SkippedLine struct {
	// Frame is the index of the complete frame within a single Decode call.
	Frame int

	// Line is the raw line, including the "data:" prefix.
	Line string

	// Err is the JSON parse error.
	Err error
}

// Result is the outcome of decoding one delivery.
type Result struct {
	// Events holds the parsed payloads in stream order: frame order first,
	// then line order within a frame.
	Events []Event

	// Pending is the trailing fragment not yet terminated by a blank line.
	// It must be passed back as previousPending on the next call.
	Pending string

	// Skipped lists malformed data lines, in stream order.
	Skipped []SkippedLine
}
