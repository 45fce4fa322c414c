package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stylectl/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("prints a success mark and returns nil", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "loading collection", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark + " loading collection"))
	})

	It("returns the function error with a fail mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		err := cliui.Step(&buf, "loading", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds otherwise", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Progress", func() {
	It("prints plain lines only when the count changes", func() {
		var buf bytes.Buffer
		p := cliui.NewProgress(&buf, "chat.csv", false)
		p.Update(0.25, 1, 4)
		p.Update(0.25, 1, 4)
		p.Update(0.5, 2, 4)
		p.Done(nil, "4 vectors")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(ContainSubstring("chat.csv 1/4 (25%)"))
		Expect(lines[1]).To(ContainSubstring("chat.csv 2/4 (50%)"))
		Expect(lines[2]).To(ContainSubstring(cliui.SuccessMark + " chat.csv"))
		Expect(lines[2]).To(ContainSubstring("4 vectors"))
	})

	It("redraws a bar in place when interactive", func() {
		var buf bytes.Buffer
		p := cliui.NewProgress(&buf, "chat.csv", true)
		p.Update(1.5, 4, 4)
		p.Done(errors.New("x"), "")

		out := buf.String()
		Expect(out).To(HavePrefix("\r"))
		Expect(out).To(ContainSubstring("4/4"))
		Expect(out).To(ContainSubstring(cliui.FailMark))
	})

	It("does not treat buffers as terminals", func() {
		Expect(cliui.IsTerminal(&bytes.Buffer{})).To(BeFalse())
	})
})
