package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/papercomputeco/stylectl/pkg/sse"
)

// UploadRequest describes one CSV chat export to embed into a collection.
type UploadRequest struct {
	// Collection receives the vectors. It is created if missing.
	Collection string

	// UserName selects whose messages are embedded.
	UserName string

	// Size caps the number of messages embedded. Zero lets the backend decide.
	Size int

	// FileName is sent as the multipart file name. The backend derives the
	// chatroom id from it.
	FileName string

	// CSV is the raw chat export.
	CSV []byte

	// Transcript, when set, receives the raw event stream verbatim.
	Transcript io.Writer
}

func (r UploadRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Collection) == "":
		return errors.New("backend: upload collection is required")
	case strings.TrimSpace(r.UserName) == "":
		return errors.New("backend: upload user name is required")
	case r.Size < 0:
		return fmt.Errorf("backend: upload size must not be negative, got %d", r.Size)
	case len(r.CSV) == 0:
		return errors.New("backend: upload CSV is empty")
	}
	return nil
}

// errBeforeResponse marks upload failures that happened before the backend
// answered. The backend starts embedding as soon as it answers, so these are
// the only ones safe to retry.
type errBeforeResponse struct {
	err error
}

func (e *errBeforeResponse) Error() string { return e.err.Error() }
func (e *errBeforeResponse) Unwrap() error { return e.err }

// UploadVectors streams req to the backend and reports each progress event to
// onProgress in arrival order. It returns the terminal progress.
//
// A progress event with status "error" is returned as *UploadError alongside
// that progress. A stream that ends without a terminal event returns
// ErrStreamIncomplete. Only transport errors and retryable statuses received
// before the stream opens are retried; a broken stream is final.
func (c *Client) UploadVectors(ctx context.Context, req UploadRequest, onProgress func(Progress)) (*Progress, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	body, contentType, err := encodeUpload(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.retry.wait(ctx, attempt); err != nil {
			return nil, err
		}

		last, err := c.uploadOnce(ctx, req, body, contentType, onProgress)
		if err == nil {
			return last, nil
		}

		var early *errBeforeResponse
		if !errors.As(err, &early) {
			return last, err
		}

		lastErr = early.err
		if !isRetryable(ctx, lastErr) {
			return nil, lastErr
		}

		c.logger.Warn("retrying vector upload",
			"collection", req.Collection,
			"attempt", attempt,
			"error", lastErr,
		)
	}

	return nil, lastErr
}

func (c *Client) uploadOnce(ctx context.Context, req UploadRequest, body []byte, contentType string, onProgress func(Progress)) (*Progress, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, c.apiURL(collectionsPath+"/vectors:load", nil), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.send(httpReq)
	if err != nil {
		return nil, &errBeforeResponse{err: err}
	}
	defer resp.Body.Close()

	opts := []sse.ReaderOption{
		sse.WithOnSkip(func(line sse.SkippedLine) {
			c.logger.Warn("skipping malformed progress line",
				"collection", req.Collection,
				"frame", line.Frame,
				"line", line.Line,
				"error", line.Err,
			)
		}),
	}
	if req.Transcript != nil {
		opts = append(opts, sse.WithTee(req.Transcript))
	}
	reader := sse.NewReader(resp.Body, opts...)

	var last *Progress
	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		event, err := reader.Next()
		if err != nil {
			return last, fmt.Errorf("reading upload stream: %w", err)
		}
		if event == nil {
			return last, ErrStreamIncomplete
		}

		var p Progress
		if err := event.Unmarshal(&p); err != nil {
			c.logger.Warn("skipping unrecognized progress event",
				"collection", req.Collection,
				"data", event.Data,
				"error", err,
			)
			continue
		}

		last = &p
		if onProgress != nil {
			onProgress(p)
		}

		switch p.Status {
		case StatusCompleted:
			return last, nil
		case StatusError:
			return last, &UploadError{Collection: req.Collection, Message: p.Error}
		}
	}
}

func encodeUpload(req UploadRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"collection_name", req.Collection},
		{"user_name", req.UserName},
	}
	if req.Size > 0 {
		fields = append(fields, [2]string{"size", strconv.Itoa(req.Size)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("encoding upload field %s: %w", f[0], err)
		}
	}

	name := filepath.Base(req.FileName)
	if req.FileName == "" {
		name = "messages.csv"
	}
	part, err := w.CreateFormFile("csv_file", name)
	if err != nil {
		return nil, "", fmt.Errorf("encoding upload file: %w", err)
	}
	if _, err := part.Write(req.CSV); err != nil {
		return nil, "", fmt.Errorf("encoding upload file: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encoding upload: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
