package proxy_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stylectl/pkg/eventstream"
	"github.com/papercomputeco/stylectl/pkg/logger"
	testutils "github.com/papercomputeco/stylectl/pkg/utils/test"
	"github.com/papercomputeco/stylectl/proxy"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.UploadProgressEvent
}

func (r *recordingPublisher) PublishProgress(_ context.Context, event *eventstream.UploadProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) Events() []*eventstream.UploadProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.UploadProgressEvent(nil), r.events...)
}

func uploadBody(collection, user, fileName, csv string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	Expect(w.WriteField("collection_name", collection)).To(Succeed())
	Expect(w.WriteField("user_name", user)).To(Succeed())
	part, err := w.CreateFormFile("csv_file", fileName)
	Expect(err).NotTo(HaveOccurred())
	_, err = io.WriteString(part, csv)
	Expect(err).NotTo(HaveOccurred())
	Expect(w.Close()).To(Succeed())
	return &buf, w.FormDataContentType()
}

var _ = Describe("New", func() {
	It("requires a logger", func() {
		_, err := proxy.New(proxy.Config{Target: "http://localhost:8000"})
		Expect(err).To(MatchError(ContainSubstring("logger is required")))
	})

	It("rejects a target without scheme and host", func() {
		_, err := proxy.New(proxy.Config{Target: "localhost", Logger: logger.Nop()})
		Expect(err).To(MatchError(ContainSubstring("invalid backend target")))
	})
})

var _ = Describe("Proxy", func() {
	var (
		fake      *testutils.FakeBackend
		publisher *recordingPublisher
		app       *fiber.App
	)

	do := func(req *http.Request) (*http.Response, string) {
		resp, err := app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(data)
	}

	BeforeEach(func() {
		fake = testutils.NewFakeBackend("secret")
		DeferCleanup(fake.Close)
		publisher = &recordingPublisher{}

		p, err := proxy.New(proxy.Config{
			Target:    fake.URL(),
			Token:     "secret",
			Publisher: publisher,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		app.All("/v1/backend/*", p.Handler)
	})

	It("forwards requests with the configured token", func() {
		fake.AddCollection("alice", 3)

		req := httptest.NewRequest(http.MethodGet, "/v1/backend/api/v1/vector-store/collections", nil)
		req.Header.Set("Authorization", "Bearer stale")
		resp, body := do(req)

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"status":"success","collections":["alice"]}`))
	})

	It("forwards the query string", func() {
		fake.AddCollection("alice", 3)

		resp, body := do(httptest.NewRequest(http.MethodGet,
			"/v1/backend/api/v1/vector-store/collections/vectors:count?name=alice", nil))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var count struct {
			Count int `json:"count"`
		}
		Expect(json.Unmarshal([]byte(body), &count)).To(Succeed())
		Expect(count.Count).To(Equal(3))
	})

	It("passes backend errors through", func() {
		resp, body := do(httptest.NewRequest(http.MethodPost, "/v1/backend/api/v1/vector-store/collections:load?name=nope", nil))
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(body).To(ContainSubstring("collection nope not found"))
	})

	It("relays upload streams verbatim and publishes their progress", func() {
		body, contentType := uploadBody("alice", "alice", "chat.csv", "2024-01-02 10:00:00,alice,hi\n")
		req := httptest.NewRequest(http.MethodPost, "/v1/backend/api/v1/vector-store/collections/vectors:load", body)
		req.Header.Set("Content-Type", contentType)

		resp, stream := do(req)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
		Expect(stream).To(Equal(
			`data: {"status":"processing","processed":1,"total":2,"percentage":50.0}` + "\n\n" +
				`data: {"status":"completed","processed":2,"total":2,"percentage":100.0}` + "\n\n",
		))

		uploads := fake.Uploads()
		Expect(uploads).To(HaveLen(1))
		Expect(uploads[0].FileName).To(Equal("chat.csv"))

		Eventually(publisher.Events).Should(HaveLen(2))
		events := publisher.Events()
		Expect(events[0].UploadID).To(Equal(events[1].UploadID))
		Expect(events[0].Collection).To(Equal("alice"))
		Expect(events[0].FileName).To(Equal("chat.csv"))
		Expect(events[1].Progress.Status).To(Equal("completed"))
		Expect(events[1].Progress.Processed).To(Equal(2))
	})

	It("answers 502 when the backend is unreachable", func() {
		fake.Close()

		resp, body := do(httptest.NewRequest(http.MethodGet, "/v1/backend/health", nil))
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		Expect(body).To(ContainSubstring("backend request failed"))
	})
})

var _ = Describe("Proxy below a path prefix", func() {
	var (
		fake *testutils.FakeBackend
		app  *fiber.App
	)

	BeforeEach(func() {
		fake = testutils.NewFakeBackend("secret")
		DeferCleanup(fake.Close)

		p, err := proxy.New(proxy.Config{
			Target: fake.URL() + "/api/v1",
			Token:  "secret",
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		app.All("/v1/backend/*", p.Handler)
	})

	status := func(target string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		Expect(err).NotTo(HaveOccurred())
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	It("forwards paths below the prefix", func() {
		fake.AddCollection("alice", 1)
		Expect(status("/v1/backend/vector-store/collections")).To(Equal(http.StatusOK))
	})

	DescribeTable("rejects encoded paths that climb above the prefix",
		func(target string) {
			Expect(status(target)).To(Equal(http.StatusBadRequest))
		},
		Entry("to the root", "/v1/backend/..%2F..%2Fhealth"),
		Entry("to a sibling", "/v1/backend/..%2Fv1-admin"),
		Entry("deep then out", "/v1/backend/vector-store%2F..%2F..%2F..%2Fhealth"),
	)
})
