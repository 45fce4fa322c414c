package docscmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docscmder "github.com/papercomputeco/stylectl/cmd/stylectl/docs"
	testutils "github.com/papercomputeco/stylectl/pkg/utils/test"
)

var _ = Describe("docs command", func() {
	var (
		fake      *testutils.FakeBackend
		configDir string
	)

	run := func(args ...string) (string, error) {
		args = append(args, "--target", fake.URL(), "--token", "secret")
		return testutils.ExecuteUnderRoot(docscmder.NewDocsCmd(), configDir, args...)
	}

	BeforeEach(func() {
		fake = testutils.NewFakeBackend("secret")
		DeferCleanup(fake.Close)
		configDir = GinkgoT().TempDir()
	})

	It("rejects arguments", func() {
		cmd := docscmder.NewDocsCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("prints the raw document as indented JSON", func() {
		out, err := run("--raw")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(MatchJSON(testutils.SampleOpenAPI))
		Expect(out).To(ContainSubstring("\n  \"openapi\": \"3.1.0\""))
	})

	It("prints operations grouped by tag as markdown", func() {
		out, err := run("--plain")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("# Style Converter (1.0.0)"))
		Expect(out).To(ContainSubstring("## convert"))
		Expect(out).To(ContainSubstring("### `POST /api/v1/convert`"))
		Expect(out).To(ContainSubstring("## vector-store"))
		Expect(out).To(ContainSubstring("| `query` | query | yes |"))
	})

	It("filters by tag", func() {
		out, err := run("--plain", "--tag", "convert")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("POST /api/v1/convert"))
		Expect(out).NotTo(ContainSubstring("vector-store:search"))
	})

	It("rejects an unknown tag", func() {
		_, err := run("--plain", "--tag", "nope")
		Expect(err).To(MatchError(ContainSubstring(`unknown tag "nope"`)))
	})

	It("rejects --raw with --tag", func() {
		_, err := run("--raw", "--tag", "convert")
		Expect(err).To(MatchError(ContainSubstring("mutually exclusive")))
	})

	It("renders for the terminal by default", func() {
		out, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Style Converter"))
	})

	It("reports a rejected token", func() {
		_, err := testutils.ExecuteUnderRoot(docscmder.NewDocsCmd(), configDir,
			"--target", fake.URL(), "--token", "wrong")
		Expect(err).To(MatchError(ContainSubstring("fetching openapi document")))
	})
})
