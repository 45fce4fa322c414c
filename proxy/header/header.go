// Package header filters headers crossing the backend passthrough.
//
// The passthrough sits between a local client and the backend like so:
//
//	Client <--> Gateway <--> Backend
//
// and each leg negotiates its own connection, encoding and credentials.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequestIDHeader correlates a passthrough request with backend logs.
const RequestIDHeader = "X-Request-ID"

// Handler manages headers between the two legs.
type Handler struct {
	token string
}

// NewHandler creates a Handler that authenticates upstream requests with
// token. An empty token forwards requests without credentials.
func NewHandler(token string) *Handler {
	return &Handler{token: token}
}

// skipRequest is the set of request headers (client --> gateway --> backend)
// that are not forwarded.
var skipRequest = map[string]struct{}{
	// Hop-by-hop.
	"Connection": {},

	// Rewritten by http.Transport to match the backend URL.
	"Host": {},

	// Dropped so http.Transport negotiates gzip itself and hands back a
	// decoded body.
	"Accept-Encoding": {},

	// Computed from the forwarded body.
	"Content-Length": {},

	// The backend only ever sees the configured token.
	"Authorization": {},
	"Cookie":        {},
}

// skipResponse is the set of backend response headers (client <-- gateway <--
// backend) that are not copied back to the client.
var skipResponse = map[string]struct{}{
	"Connection":        {},
	"Transfer-Encoding": {},

	// The body was decoded by http.Transport.
	"Content-Encoding": {},
	"Content-Length":   {},
}

// SetUpstreamRequestHeaders copies the client's headers to req, minus the
// filtered ones, and attaches the configured bearer token.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, skip := skipRequest[k]; !skip {
			req.Header.Set(k, string(value))
		}
	})

	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

// SetClientResponseHeaders copies the backend's response headers to the
// client, minus the filtered ones.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}
