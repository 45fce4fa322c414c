package stylectlcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stylectlcmder "github.com/papercomputeco/stylectl/cmd/stylectl"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

var _ = Describe("NewStylectlCmd", func() {
	It("registers every subcommand", func() {
		cmd := stylectlcmder.NewStylectlCmd()

		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"init", "config", "convert", "collections", "search",
			"upload", "watch", "docs", "status", "serve", "version",
		))
	})

	It("carries the global flags", func() {
		cmd := stylectlcmder.NewStylectlCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().ShorthandLookup("d")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("prints the version string", func() {
		cmd := stylectlcmder.NewStylectlCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(Equal(utils.VersionString() + "\n"))
	})
})
