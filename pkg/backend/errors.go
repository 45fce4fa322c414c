package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrStreamIncomplete is returned when an upload stream ends without a
// "completed" or "error" progress event.
var ErrStreamIncomplete = errors.New("backend: upload stream ended before completion")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status    int
	Detail    string
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend: HTTP %d: %s", e.Status, detail)
}

// UploadError is a progress event with status "error".
type UploadError struct {
	Collection string
	Message    string
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("backend: upload into %q failed: %s", e.Collection, e.Message)
}

// decodeAPIError reads a FastAPI-style error body: {"detail": "..."} or, for
// validation failures, {"detail": [{...}, ...]}.
func decodeAPIError(resp *http.Response, requestID string) error {
	data, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode, RequestID: requestID}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return apiErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		apiErr.Detail = trimmed
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}

	apiErr.Detail = string(payload.Detail)
	return apiErr
}

// isRetryable reports whether a failed request may be attempted again.
func isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}

	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return false
	}

	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
