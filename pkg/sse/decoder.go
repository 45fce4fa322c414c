package sse

// Decoder owns the pending buffer for one streamed response. It is not safe
// for concurrent use; create a new Decoder for every request, including
// retries of the same request.
type Decoder struct {
	pending  string
	received int64
	skipped  int

	// buffered holds events produced by Write until drained by Events.
	buffered []Event
}

// NewDecoder returns a Decoder with an empty pending buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Chunk decodes bytes received since the previous call.
func (d *Decoder) Chunk(chunk string) Result {
	res := Decode(d.pending, chunk)
	d.pending = res.Pending
	d.received += int64(len(chunk))
	d.skipped += len(res.Skipped)
	return res
}

// Feed decodes a cumulative snapshot of the response body, the shape delivered
// by progress callbacks that report everything received so far. Only the
// bytes beyond the previously seen length are decoded. A snapshot shorter than
// that length returns ErrSnapshotRegressed and leaves the decoder unchanged.
func (d *Decoder) Feed(snapshot string) (Result, error) {
	if int64(len(snapshot)) < d.received {
		return Result{Pending: d.pending}, ErrSnapshotRegressed
	}

	return d.Chunk(snapshot[d.received:]), nil
}

// Write implements io.Writer. Decoded events are buffered until Events is
// called. Write never returns an error.
func (d *Decoder) Write(p []byte) (int, error) {
	res := d.Chunk(string(p))
	d.buffered = append(d.buffered, res.Events...)
	return len(p), nil
}

// Events returns and clears the events buffered by Write.
func (d *Decoder) Events() []Event {
	events := d.buffered
	d.buffered = nil
	return events
}

// Flush decodes the pending buffer as a final frame, for streams that end
// without a trailing blank line, and clears it.
func (d *Decoder) Flush() Result {
	var res Result
	if d.pending != "" {
		res.decodeFrame(0, d.pending)
	}

	d.pending = ""
	d.skipped += len(res.Skipped)
	return res
}

// Pending returns the unterminated trailing fragment.
func (d *Decoder) Pending() string {
	return d.pending
}

// Received returns the number of bytes decoded so far. Together with Pending
// it tells "no data yet" (0) apart from "stream ended on a separator".
func (d *Decoder) Received() int64 {
	return d.received
}

// Skipped returns the number of malformed data lines seen so far.
func (d *Decoder) Skipped() int {
	return d.skipped
}
