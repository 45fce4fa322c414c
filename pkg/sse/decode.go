package sse

import (
	"encoding/json"
	"regexp"
	"strings"
)

const dataPrefix = "data:"

var (
	// frameSeparator matches one blank line: a line break, an optional
	// carriage return and a second line break. It accepts "\n\n",
	// "\r\n\r\n" and mixed forms.
	frameSeparator = regexp.MustCompile(`\r?\n\r?\n`)

	lineBreak = regexp.MustCompile(`\r?\n`)
)

// Decode splits previousPending+chunk into complete frames and extracts the
// JSON payload of every "data:" line in them.
//
// chunk holds only the bytes received since the previous call; the caller
// threads Result.Pending from one call into the next. The last
// separator-delimited fragment is always returned as Pending, even when it
// looks complete, because no separator has confirmed it yet. Decode never
// fails: malformed payloads are reported in Result.Skipped and decoding
// continues with the next line.
func Decode(previousPending, chunk string) Result {
	frames := frameSeparator.Split(previousPending+chunk, -1)

	last := len(frames) - 1
	res := Result{Pending: frames[last]}
	for i, frame := range frames[:last] {
		res.decodeFrame(i, frame)
	}

	return res
}

// decodeFrame appends the events (or skipped lines) of one complete frame.
func (r *Result) decodeFrame(index int, frame string) {
	for _, line := range lineBreak.Split(frame, -1) {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))

		var value any
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			r.Skipped = append(r.Skipped, SkippedLine{
				Frame: index,
				Line:  line,
				Err:   err,
			})
			continue
		}

		r.Events = append(r.Events, Event{
			Data:  payload,
			Value: value,
		})
	}
}
