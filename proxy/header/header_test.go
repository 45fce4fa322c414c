package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SetUpstreamRequestHeaders", func() {
	var app *fiber.App

	// forward runs req through a handler built with token and returns the
	// headers of the upstream request.
	forward := func(token string, req *http.Request) http.Header {
		var got http.Header
		hh := NewHandler(token)

		app.Post("/test", func(c *fiber.Ctx) error {
			upstream, _ := http.NewRequest(http.MethodPost, "http://backend/test", nil)
			hh.SetUpstreamRequestHeaders(c, upstream)
			got = upstream.Header
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return got
	}

	BeforeEach(func() {
		app = fiber.New()
	})

	AfterEach(func() {
		_ = app.Shutdown()
	})

	It("forwards ordinary headers", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "abc-123")

		got := forward("", req)
		Expect(got.Get("Content-Type")).To(Equal("application/json"))
		Expect(got.Get(RequestIDHeader)).To(Equal("abc-123"))
	})

	It("replaces client credentials with the configured token", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Authorization", "Bearer from-browser")
		req.Header.Set("Cookie", "session=1")

		got := forward("secret", req)
		Expect(got.Get("Authorization")).To(Equal("Bearer secret"))
		Expect(got.Get("Cookie")).To(BeEmpty())
	})

	It("sends no credentials without a token", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Authorization", "Bearer from-browser")

		Expect(forward("", req).Get("Authorization")).To(BeEmpty())
	})

	DescribeTable("strips connection-level headers",
		func(name, value string) {
			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			req.Header.Set(name, value)
			Expect(forward("", req).Get(name)).To(BeEmpty())
		},
		Entry("Connection", "Connection", "keep-alive"),
		Entry("Accept-Encoding", "Accept-Encoding", "gzip, br"),
		Entry("Content-Length", "Content-Length", "0"),
	)
})

var _ = Describe("SetClientResponseHeaders", func() {
	var app *fiber.App

	respond := func(h http.Header) *http.Response {
		hh := NewHandler("secret")
		app.Get("/test", func(c *fiber.Ctx) error {
			hh.SetClientResponseHeaders(c, &http.Response{Header: h})
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return resp
	}

	BeforeEach(func() {
		app = fiber.New()
	})

	AfterEach(func() {
		_ = app.Shutdown()
	})

	It("forwards ordinary backend headers", func() {
		resp := respond(http.Header{
			"Content-Type":  {"text/event-stream"},
			"X-Request-Id":  {"abc-123"},
			"Cache-Control": {"no-cache"},
		})

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("X-Request-Id")).To(Equal("abc-123"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
	})

	It("strips headers describing the backend leg", func() {
		resp := respond(http.Header{
			"Connection":       {"keep-alive"},
			"Content-Encoding": {"gzip"},
		})

		Expect(resp.Header.Get("Connection")).To(BeEmpty())
		Expect(resp.Header.Get("Content-Encoding")).To(BeEmpty())
	})
})
