package sse_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchboard/pkg/sse"
)

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("parses consecutive events and then reports end of stream", func() {
			r := sse.NewReader(strings.NewReader("data: first\n\ndata: second\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("first"))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("second"))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("parses type and id fields", func() {
			r := sse.NewReader(strings.NewReader("event: content_block_delta\nid: 7\ndata: {\"x\":1}\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("content_block_delta"))
			Expect(ev.ID).To(Equal("7"))
			Expect(ev.Data).To(Equal(`{"x":1}`))
		})

		It("joins multiple data lines with newline", func() {
			r := sse.NewReader(strings.NewReader("data: one\ndata: two\ndata: three\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("one\ntwo\nthree"))
		})

		It("keeps an empty first data line when joining", func() {
			r := sse.NewReader(strings.NewReader("data:\ndata: tail\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("\ntail"))
		})

		It("skips comments, blank lines, and unknown fields", func() {
			r := sse.NewReader(strings.NewReader("\n\n: keep-alive\nretry: 3000\ndata:no-space\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("no-space"))
		})

		It("yields an event when the stream ends without a blank line", func() {
			r := sse.NewReader(strings.NewReader("data: unterminated"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("unterminated"))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("returns nil on empty input", func() {
			ev, err := sse.NewReader(strings.NewReader("")).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("recognizes the OpenAI done marker", func() {
			r := sse.NewReader(strings.NewReader("data: {\"choices\":[]}\n\ndata: [DONE]\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsDone()).To(BeFalse())

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsDone()).To(BeTrue())
		})
	})

	Describe("NewTeeReader", func() {
		It("copies the raw stream verbatim to the destination", func() {
			input := ": comment\nevent: message_stop\ndata: {\"type\":\"message_stop\"}\n\ndata: [DONE]\n\n"
			var dst bytes.Buffer
			r := sse.NewTeeReader(strings.NewReader(input), &dst)

			for {
				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				if ev == nil {
					break
				}
			}
			Expect(dst.String()).To(Equal(input))
		})
	})
})
