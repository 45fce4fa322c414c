package servecmder_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/stylectl/cmd/stylectl/serve"
	testutils "github.com/papercomputeco/stylectl/pkg/utils/test"
)

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer l.Close()
	return l.Addr().String()
}

func get(url string) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

var _ = Describe("serve command", func() {
	var (
		fake      *testutils.FakeBackend
		configDir string
		addr      string
	)

	start := func(args ...string) (context.CancelFunc, <-chan error) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		args = append([]string{"--target", fake.URL(), "--token", "secret", "--listen", addr}, args...)
		go func() {
			defer GinkgoRecover()
			_, err := testutils.ExecuteUnderRootContext(ctx, servecmder.NewServeCmd(), configDir, args...)
			done <- err
		}()
		return cancel, done
	}

	BeforeEach(func() {
		fake = testutils.NewFakeBackend("secret")
		DeferCleanup(fake.Close)
		configDir = GinkgoT().TempDir()
		addr = freeAddr()
	})

	It("rejects --stdio with --no-mcp", func() {
		_, err := testutils.ExecuteUnderRoot(servecmder.NewServeCmd(), configDir,
			"--target", fake.URL(), "--stdio", "--no-mcp")
		Expect(err).To(MatchError(ContainSubstring("mutually exclusive")))
	})

	It("requires a backend target", func() {
		_, err := testutils.ExecuteUnderRoot(servecmder.NewServeCmd(), configDir, "--listen", addr)
		Expect(err).To(MatchError(ContainSubstring("backend target is not configured")))
	})

	It("serves the gateway until cancelled", func() {
		fake.AddCollection("alice", 2)
		fake.SetLoaded("alice")

		cancel, done := start()
		defer cancel()

		Eventually(func() (int, error) {
			return get("http://" + addr + "/ping")
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))

		resp, err := http.Get("http://" + addr + "/v1/status")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var status map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&status)).To(Succeed())
		Expect(status).To(HaveKeyWithValue("loaded_collection", "alice"))
		Expect(status).To(HaveKeyWithValue("mcp", true))

		Expect(get("http://" + addr + "/v1/backend/api/v1/vector-store/collections")).To(Equal(http.StatusOK))

		cancel()
		Eventually(done, 10*time.Second).Should(Receive(BeNil()))
	})

	It("leaves /mcp unmounted with --no-mcp", func() {
		cancel, done := start("--no-mcp")
		defer cancel()

		Eventually(func() (int, error) {
			return get("http://" + addr + "/ping")
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))

		Expect(get("http://" + addr + "/mcp")).To(Equal(http.StatusNotFound))

		cancel()
		Eventually(done, 10*time.Second).Should(Receive(BeNil()))
	})

	It("also writes JSON logs to --log-file", func() {
		logFile := filepath.Join(GinkgoT().TempDir(), "serve.log")

		cancel, done := start("--log-file", logFile)
		defer cancel()

		Eventually(func() (int, error) {
			return get("http://" + addr + "/ping")
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))

		cancel()
		Eventually(done, 10*time.Second).Should(Receive(BeNil()))

		data, err := os.ReadFile(logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"starting gateway"`))
		Expect(string(data)).To(ContainSubstring(`"component":"gateway"`))
	})

	It("writes the same JSON records to --log-file with --json-logs", func() {
		logFile := filepath.Join(GinkgoT().TempDir(), "serve.log")

		cancel, done := start("--log-file", logFile, "--json-logs")
		defer cancel()

		Eventually(func() (int, error) {
			return get("http://" + addr + "/ping")
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))

		cancel()
		Eventually(done, 10*time.Second).Should(Receive(BeNil()))

		data, err := os.ReadFile(logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"starting gateway"`))
		Expect(string(data)).To(ContainSubstring(`"msg":"shutting down"`))
	})
})
