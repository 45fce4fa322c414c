package proxy

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/stylectl/pkg/eventstream"
)

// Config is the backend passthrough configuration.
type Config struct {
	// Target is the backend base URL (e.g., "http://localhost:8000").
	Target string

	// Token is attached as a bearer token to every forwarded request.
	Token string

	// Timeout bounds a request until the backend answers with headers, and
	// the whole exchange for non-streaming responses. Defaults to 30s.
	Timeout time.Duration

	// Publisher receives the upload progress events relayed through the
	// passthrough. Optional.
	Publisher eventstream.Publisher

	// HTTPClient defaults to a client without an overall timeout, since
	// upload streams run for minutes.
	HTTPClient *http.Client

	Logger *slog.Logger
}
