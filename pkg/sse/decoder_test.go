package sse_test

import (
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stylectl/pkg/sse"
)

var _ = Describe("Decoder", func() {
	var d *sse.Decoder

	BeforeEach(func() {
		d = sse.NewDecoder()
	})

	It("starts with no data and no pending buffer", func() {
		Expect(d.Pending()).To(BeEmpty())
		Expect(d.Received()).To(BeZero())
		Expect(d.Skipped()).To(BeZero())
	})

	Describe("Chunk", func() {
		It("threads the pending buffer between deliveries", func() {
			res := d.Chunk("data: {\"a\"")
			Expect(res.Events).To(BeEmpty())
			Expect(d.Pending()).To(Equal(`data: {"a"`))

			res = d.Chunk(":1}\n\ndata: {\"b\":2}")
			Expect(payloads(res.Events)).To(Equal([]string{`{"a":1}`}))
			Expect(d.Pending()).To(Equal(`data: {"b":2}`))
			Expect(d.Received()).To(BeNumerically("==", len("data: {\"a\":1}\n\ndata: {\"b\":2}")))
		})

		It("distinguishes an empty pending buffer after a separator from no data", func() {
			d.Chunk("data: 1\n\n")
			Expect(d.Pending()).To(BeEmpty())
			Expect(d.Received()).To(BeNumerically(">", 0))
		})

		It("counts skipped lines across deliveries", func() {
			d.Chunk("data: x\n\n")
			d.Chunk("data: y\n\ndata: 1\n\n")
			Expect(d.Skipped()).To(Equal(2))
		})
	})

	Describe("Feed", func() {
		It("decodes only the bytes beyond the previous snapshot", func() {
			full := "data: {\"n\":1}\n\ndata: {\"n\":2}\n\ndata: {\"n\":3}\n\n"

			var got []string
			for _, end := range []int{5, 17, 18, 30, len(full)} {
				res, err := d.Feed(full[:end])
				Expect(err).NotTo(HaveOccurred())
				got = append(got, payloads(res.Events)...)
			}

			Expect(got).To(Equal([]string{`{"n":1}`, `{"n":2}`, `{"n":3}`}))
			Expect(d.Pending()).To(BeEmpty())
		})

		It("accepts a repeated snapshot as a no-op", func() {
			_, err := d.Feed("data: 1\n\n")
			Expect(err).NotTo(HaveOccurred())

			res, err := d.Feed("data: 1\n\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Events).To(BeEmpty())
		})

		It("rejects a snapshot that shrank", func() {
			_, err := d.Feed("data: 1\n\ndata")
			Expect(err).NotTo(HaveOccurred())

			res, err := d.Feed("data: 1")
			Expect(err).To(MatchError(sse.ErrSnapshotRegressed))
			Expect(res.Pending).To(Equal("data"))
			Expect(d.Pending()).To(Equal("data"))
		})
	})

	Describe("Write", func() {
		It("buffers events until drained", func() {
			n, err := io.Copy(d, strings.NewReader("data: {\"a\":1}\n\ndata: {\"b\":2}\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">", 0))

			Expect(payloads(d.Events())).To(Equal([]string{`{"a":1}`, `{"b":2}`}))
			Expect(d.Events()).To(BeEmpty())
		})
	})

	Describe("Flush", func() {
		It("decodes the pending buffer as a final frame", func() {
			d.Chunk("data: {\"a\":1}\n\ndata: {\"b\":2}")

			res := d.Flush()
			Expect(payloads(res.Events)).To(Equal([]string{`{"b":2}`}))
			Expect(d.Pending()).To(BeEmpty())
		})

		It("returns nothing when no fragment is pending", func() {
			d.Chunk("data: 1\n\n")
			res := d.Flush()
			Expect(res.Events).To(BeEmpty())
			Expect(res.Skipped).To(BeEmpty())
		})

		It("reports a malformed trailing fragment", func() {
			d.Chunk("data: {\"trunc")
			res := d.Flush()
			Expect(res.Events).To(BeEmpty())
			Expect(res.Skipped).To(HaveLen(1))
			Expect(d.Skipped()).To(Equal(1))
		})
	})
})
