package sse

import (
	"errors"
	"io"
)

const defaultChunkSize = 4 * 1024

// Reader pulls events from a streaming response body. Each Read from the
// source is handed to a Decoder as one delivery, so events are available as
// soon as their frame is terminated.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │   Reader.Next()  │──▶│ optional tee io.Writer│
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
type Reader struct {
	src     io.Reader
	tee     io.Writer
	onSkip  func(SkippedLine)
	decoder *Decoder
	buf     []byte

	queue []Event
	done  bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTee writes every raw byte read from the source, verbatim, to w.
func WithTee(w io.Writer) ReaderOption {
	return func(r *Reader) {
		r.tee = w
	}
}

// WithOnSkip registers a callback for malformed data lines.
func WithOnSkip(fn func(SkippedLine)) ReaderOption {
	return func(r *Reader) {
		r.onSkip = fn
	}
}

// WithChunkSize sets the size of each read from the source.
func WithChunkSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// NewReader returns a Reader decoding events from src with a fresh Decoder.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:     src,
		decoder: NewDecoder(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.buf == nil {
		r.buf = make([]byte, defaultChunkSize)
	}

	return r
}

// Next returns the next event. It blocks until a frame is complete. Next
// returns nil, nil when the source is exhausted; a trailing frame without a
// terminating blank line is decoded at that point.
func (r *Reader) Next() (*Event, error) {
	for len(r.queue) == 0 {
		if r.done {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			if r.tee != nil {
				if _, werr := r.tee.Write(r.buf[:n]); werr != nil {
					return nil, werr
				}
			}
			r.accept(r.decoder.Chunk(string(r.buf[:n])))
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			r.done = true
			r.accept(r.decoder.Flush())
		}
	}

	ev := r.queue[0]
	r.queue = r.queue[1:]
	return &ev, nil
}

// Skipped returns the number of malformed data lines seen so far.
func (r *Reader) Skipped() int {
	return r.decoder.Skipped()
}

func (r *Reader) accept(res Result) {
	r.queue = append(r.queue, res.Events...)

	if r.onSkip == nil {
		return
	}
	for _, s := range res.Skipped {
		r.onSkip(s)
	}
}
