package cmdutil_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/config"
	"github.com/papercomputeco/stylectl/pkg/eventstream/kafka"
	"github.com/papercomputeco/stylectl/pkg/eventstream/nop"
	"github.com/papercomputeco/stylectl/pkg/logger"
)

// newCommand returns a command carrying the backend flags and a config dir.
func newCommand(configDir string, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "check", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String(cmdutil.FlagConfigDir, "", "")
	cmd.Flags().Bool(cmdutil.FlagDebug, false, "")
	cmdutil.AddBackendFlags(cmd, &cmdutil.BackendFlags{})
	cmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
	Expect(cmd.Execute()).To(Succeed())
	return cmd
}

var _ = Describe("LoadConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("falls back to defaults", func() {
		cfg, err := cmdutil.LoadConfig(newCommand(dir), cmdutil.BackendFlagKeys...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backend.Target).To(Equal("http://localhost:8000"))
		Expect(cfg.Backend.APIPrefix).To(Equal("/api/v1"))
	})

	It("prefers the config file over defaults", func() {
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[backend]\ntarget = \"http://file:9000\"\n"), 0o600)).To(Succeed())

		cfg, err := cmdutil.LoadConfig(newCommand(dir), cmdutil.BackendFlagKeys...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backend.Target).To(Equal("http://file:9000"))
	})

	It("prefers the environment over the config file", func() {
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[backend]\ntarget = \"http://file:9000\"\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("STYLECTL_BACKEND_TARGET", "http://env:9000")

		cfg, err := cmdutil.LoadConfig(newCommand(dir), cmdutil.BackendFlagKeys...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backend.Target).To(Equal("http://env:9000"))
	})

	It("prefers an explicit flag over everything", func() {
		GinkgoT().Setenv("STYLECTL_BACKEND_TARGET", "http://env:9000")

		cfg, err := cmdutil.LoadConfig(newCommand(dir, "--target", "http://flag:9000"), cmdutil.BackendFlagKeys...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backend.Target).To(Equal("http://flag:9000"))
	})
})

var _ = Describe("NewLogger", func() {
	It("writes to the command's stderr with extra options applied", func() {
		var errOut bytes.Buffer
		cmd := &cobra.Command{Use: "check"}
		cmd.Flags().Bool(cmdutil.FlagDebug, false, "")
		cmd.SetErr(&errOut)

		cmdutil.NewLogger(cmd, logger.WithPrefix("watch")).Info("settled")
		Expect(errOut.String()).To(ContainSubstring("watch"))
		Expect(errOut.String()).To(ContainSubstring("settled"))
	})

	It("hides debug records unless --debug is set", func() {
		var errOut bytes.Buffer
		cmd := &cobra.Command{Use: "check"}
		cmd.Flags().Bool(cmdutil.FlagDebug, false, "")
		cmd.SetErr(&errOut)

		cmdutil.NewLogger(cmd).Debug("hidden")
		Expect(errOut.String()).To(BeEmpty())

		Expect(cmd.Flags().Set(cmdutil.FlagDebug, "true")).To(Succeed())
		cmdutil.NewLogger(cmd).Debug("shown")
		Expect(errOut.String()).To(ContainSubstring("shown"))
	})
})

var _ = Describe("NewClient", func() {
	It("requires a target", func() {
		_, err := cmdutil.NewClient(config.BackendConfig{}, nil)
		Expect(err).To(MatchError(ContainSubstring("STYLECTL_BACKEND_TARGET")))
	})

	It("rejects a malformed target", func() {
		_, err := cmdutil.NewClient(config.BackendConfig{Target: "://nope"}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("builds a client for a valid target", func() {
		client, err := cmdutil.NewClient(config.BackendConfig{Target: "http://localhost:8000/"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.BaseURL()).To(Equal("http://localhost:8000"))
	})
})

var _ = Describe("WithTimeout", func() {
	It("applies the configured timeout", func() {
		ctx, cancel, err := cmdutil.WithTimeout(context.Background(), config.BackendConfig{Timeout: "5s"})
		Expect(err).NotTo(HaveOccurred())
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("<=", 5*time.Second))
	})

	It("leaves the context unbounded without a timeout", func() {
		ctx, cancel, err := cmdutil.WithTimeout(context.Background(), config.BackendConfig{})
		Expect(err).NotTo(HaveOccurred())
		defer cancel()

		_, ok := ctx.Deadline()
		Expect(ok).To(BeFalse())
	})

	It("rejects an invalid timeout", func() {
		_, _, err := cmdutil.WithTimeout(context.Background(), config.BackendConfig{Timeout: "soon"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewPublisher", func() {
	It("defaults to the nop publisher", func() {
		p, err := cmdutil.NewPublisher(config.EventStreamConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher", func() {
		p, err := cmdutil.NewPublisher(config.EventStreamConfig{
			Provider: "kafka",
			Brokers:  "localhost:9092",
			Topic:    "stylectl.upload.progress",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.Close()).To(Succeed())
	})

	It("requires kafka brokers", func() {
		_, err := cmdutil.NewPublisher(config.EventStreamConfig{Provider: "kafka", Topic: "t"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := cmdutil.NewPublisher(config.EventStreamConfig{Provider: "nats"})
		Expect(err).To(MatchError(ContainSubstring("unknown eventstream provider")))
	})
})
