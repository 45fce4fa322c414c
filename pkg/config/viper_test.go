package config_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stylectl/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v)).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		writeConfig(tmpDir, "[backend]\ntarget = \"http://gpu:8000\"\n")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("backend.target")).To(Equal("http://gpu:8000"))
		Expect(v.GetString("backend.api_prefix")).To(Equal("/api/v1"))
	})

	It("respects environment variables with STYLECTL_ prefix", func() {
		GinkgoT().Setenv("STYLECTL_BACKEND_TOKEN", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v).Backend.Token).To(Equal("from-env"))
	})

	It("env vars take precedence over config file values", func() {
		writeConfig(tmpDir, "[upload]\nworkers = 3\n")
		GinkgoT().Setenv("STYLECTL_UPLOAD_WORKERS", "9")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v).Upload.Workers).To(Equal(uint(9)))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "bindflag-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("binds cobra flags to viper keys via the registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &target)

		Expect(cmd.Flags().Set("target", "http://flag:8000")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagTarget})

		Expect(v.GetString("backend.target")).To(Equal("http://flag:8000"))
	})

	It("falls through to config when flag not set", func() {
		writeConfig(tmpDir, "[serve]\nlisten = \":5555\"\n")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("serve.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{"nonexistent"})

		Expect(v.GetString("serve.listen")).To(Equal(config.NewDefaultConfig().Serve.Listen))
	})

	It("AddStringFlag pulls name, shorthand, description and default from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &target)

		f := cmd.Flags().Lookup("target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("t"))
		Expect(f.Usage).To(Equal("Conversion backend URL"))
		Expect(f.DefValue).To(Equal("http://localhost:8000"))
	})

	It("AddUintFlag works for workers", func() {
		cmd := &cobra.Command{Use: "test"}
		var workers uint
		config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)

		f := cmd.Flags().Lookup("workers")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("2"))
		Expect(workers).To(Equal(uint(2)))
	})
})
