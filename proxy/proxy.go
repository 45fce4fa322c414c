// Package proxy forwards local requests to the conversion backend with the
// configured token attached, relaying streamed upload progress as it arrives.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/eventstream"
	"github.com/papercomputeco/stylectl/pkg/sse"
	"github.com/papercomputeco/stylectl/proxy/header"
)

const (
	defaultTimeout = 30 * time.Second

	// uploadSuffix marks the streaming vector upload route.
	uploadSuffix = "vectors:load"
)

var errPathEscapes = errors.New("path escapes the backend prefix")

// ErrorResponse is the body of a request the passthrough could not forward.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Proxy is a transparent passthrough to the backend.
type Proxy struct {
	config        Config
	target        *url.URL
	httpClient    *http.Client
	headerHandler *header.Handler
}

// upload identifies a streamed upload for progress events.
type upload struct {
	id         string
	collection string
	userName   string
	fileName   string
}

// New creates a new Proxy.
func New(config Config) (*Proxy, error) {
	if config.Logger == nil {
		return nil, errors.New("logger is required")
	}

	target, err := url.Parse(strings.TrimRight(config.Target, "/"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend target %q", config.Target)
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Proxy{
		config:        config,
		target:        target,
		httpClient:    client,
		headerHandler: header.NewHandler(config.Token),
	}, nil
}

// Handler forwards the wildcard part of the matched route, with the query
// string, to the backend. Mount it on a route ending in "/*".
func (p *Proxy) Handler(c *fiber.Ctx) error {
	upstreamURL, err := p.upstreamURL(c.Params("*"), string(c.Request().URI().QueryString()))
	if err != nil {
		p.config.Logger.Warn("rejected passthrough path", "path", c.Params("*"), "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	method := c.Method()

	// fasthttp reuses the request buffer once the handler returns.
	body := bytes.Clone(c.Body())

	var up *upload
	if method == fiber.MethodPost && strings.HasSuffix(c.Params("*"), uploadSuffix) {
		up = uploadOf(c)
	}

	// Detached from the fiber context: a streamed body outlives the handler.
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(p.config.Timeout, cancel)

	req, err := http.NewRequestWithContext(ctx, method, upstreamURL, bytes.NewReader(body))
	if err != nil {
		timer.Stop()
		cancel()
		p.config.Logger.Error("failed to create backend request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}

	p.headerHandler.SetUpstreamRequestHeaders(c, req)
	if req.Header.Get(header.RequestIDHeader) == "" {
		req.Header.Set(header.RequestIDHeader, uuid.NewString())
	}

	p.config.Logger.Debug("forwarding request to backend",
		"method", method,
		"url", upstreamURL,
		"request_id", req.Header.Get(header.RequestIDHeader),
	)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		timer.Stop()
		cancel()
		p.config.Logger.Error("backend request failed", "url", upstreamURL, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "backend request failed"})
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		defer cancel()
		defer timer.Stop()
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			p.config.Logger.Error("reading backend response failed", "url", upstreamURL, "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "backend response interrupted"})
		}

		p.headerHandler.SetClientResponseHeaders(c, resp)
		return c.Status(resp.StatusCode).Send(data)
	}

	// Streams may run past the timeout once the backend has answered.
	timer.Stop()

	p.headerHandler.SetClientResponseHeaders(c, resp)
	c.Status(resp.StatusCode)

	// io.Pipe makes every relayed chunk reach the client as it arrives.
	pr, pw := io.Pipe()
	go p.relay(resp, pw, cancel, up)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// upstreamURL maps the wildcard path below the target path. Paths that climb
// above the target path once cleaned are rejected.
func (p *Proxy) upstreamURL(rest, query string) (string, error) {
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}

	base := path.Join("/", p.target.Path)
	joined := path.Join(base, rest)
	if joined != base && !strings.HasPrefix(joined, strings.TrimSuffix(base, "/")+"/") {
		return "", errPathEscapes
	}

	u := *p.target
	u.Path = joined
	if strings.HasSuffix(rest, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = query
	return u.String(), nil
}

// relay copies the backend stream verbatim to pw while decoding its progress
// events.
func (p *Proxy) relay(resp *http.Response, pw *io.PipeWriter, cancel context.CancelFunc, up *upload) {
	defer cancel()
	defer resp.Body.Close()

	log := p.config.Logger
	reader := sse.NewReader(resp.Body,
		sse.WithTee(pw),
		sse.WithOnSkip(func(s sse.SkippedLine) {
			log.Warn("skipping malformed stream line", "frame", s.Frame, "line", s.Line, "error", s.Err)
		}),
	)

	for {
		ev, err := reader.Next()
		if err != nil {
			// Also the path taken when the client disconnects mid-stream.
			log.Warn("backend stream interrupted", "error", err)
			pw.CloseWithError(err)
			return
		}
		if ev == nil {
			break
		}

		if up != nil {
			p.publish(up, ev)
		}
	}

	_ = pw.Close()
}

func (p *Proxy) publish(up *upload, ev *sse.Event) {
	var progress backend.Progress
	if err := ev.Unmarshal(&progress); err != nil {
		p.config.Logger.Debug("stream event is not upload progress", "data", ev.Data)
		return
	}

	p.config.Logger.Debug("upload progress",
		"upload_id", up.id,
		"file", up.fileName,
		"status", progress.Status,
		"processed", progress.Processed,
		"total", progress.Total,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewUploadProgressEvent(up.id, up.collection, up.userName, up.fileName, eventstream.ProgressMeta{
		Status:     progress.Status,
		Processed:  progress.Processed,
		Total:      progress.Total,
		Percentage: progress.Percentage,
		Error:      progress.Error,
	})
	if err := p.config.Publisher.PublishProgress(context.Background(), event); err != nil {
		p.config.Logger.Warn("failed to publish upload progress", "upload_id", up.id, "error", err)
	}
}

// uploadOf reads the multipart fields of a vector upload. Missing fields stay
// empty; the backend validates the request.
func uploadOf(c *fiber.Ctx) *upload {
	up := &upload{id: uuid.NewString()}

	form, err := c.MultipartForm()
	if err != nil {
		return up
	}
	if v := form.Value["collection_name"]; len(v) > 0 {
		up.collection = v[0]
	}
	if v := form.Value["user_name"]; len(v) > 0 {
		up.userName = v[0]
	}
	if f := form.File["csv_file"]; len(f) > 0 {
		up.fileName = f[0].Filename
	}
	return up
}
