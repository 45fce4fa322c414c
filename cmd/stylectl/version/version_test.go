package versioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/stylectl/cmd/stylectl/version"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

var _ = Describe("version command", func() {
	It("prints the build information", func() {
		cmd := versioncmder.NewVersionCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version:  " + utils.Version))
		Expect(out.String()).To(ContainSubstring("Sha:      " + utils.Sha))
	})

	It("rejects arguments", func() {
		cmd := versioncmder.NewVersionCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})
})
