package stream_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

var _ = Describe("ChunkDecoder", func() {
	var decoder *stream.ChunkDecoder

	BeforeEach(func() {
		decoder = stream.NewChunkDecoder()
	})

	Context("with ASCII input", func() {
		It("returns each chunk verbatim", func() {
			Expect(decoder.Write([]byte("hello "))).To(Equal("hello "))
			Expect(decoder.Write([]byte("world"))).To(Equal("world"))
			Expect(decoder.Flush()).To(BeEmpty())
		})

		It("returns empty output for empty chunks", func() {
			Expect(decoder.Write(nil)).To(BeEmpty())
			Expect(decoder.Write([]byte{})).To(BeEmpty())
		})
	})

	Context("with multi-byte sequences split across chunks", func() {
		It("holds back a split two-byte rune until it completes", func() {
			raw := []byte("émission") // é is 0xC3 0xA9

			Expect(decoder.Write(raw[:1])).To(BeEmpty())
			Expect(decoder.Write(raw[1:])).To(Equal("émission"))
		})

		It("holds back a split three-byte rune", func() {
			raw := []byte("排放") // each rune is three bytes

			Expect(decoder.Write(raw[:4])).To(Equal("排"))
			Expect(decoder.Write(raw[4:])).To(Equal("放"))
		})

		It("holds back a split four-byte rune", func() {
			raw := []byte("📈 trend")

			Expect(decoder.Write(raw[:2])).To(BeEmpty())
			Expect(decoder.Write(raw[2:3])).To(BeEmpty())
			Expect(decoder.Write(raw[3:])).To(Equal("📈 trend"))
		})

		It("yields the same text regardless of the split points", func() {
			original := "NOx at 60 km/h: 0.42 g/km — 二氧化碳 📉 aérosol"
			raw := []byte(original)

			for step := 1; step <= len(raw); step++ {
				d := stream.NewChunkDecoder()
				var out strings.Builder
				for start := 0; start < len(raw); start += step {
					end := start + step
					if end > len(raw) {
						end = len(raw)
					}
					out.WriteString(d.Write(raw[start:end]))
				}
				out.WriteString(d.Flush())

				Expect(out.String()).To(Equal(original), "split size %d", step)
			}
		})

		It("does not retain aliases of the caller's chunk", func() {
			chunk := []byte{'a', 0xE6} // 'a' followed by the start of a three-byte rune
			Expect(decoder.Write(chunk)).To(Equal("a"))

			// The caller may reuse its buffer between reads.
			chunk[1] = 'x'

			Expect(decoder.Write([]byte{0x8E, 0x92})).To(Equal("排"))
		})
	})

	Context("flushing a truncated stream", func() {
		It("decodes the held bytes as replacement characters", func() {
			raw := []byte("ok排")

			Expect(decoder.Write(raw[:3])).To(Equal("ok"))
			Expect(decoder.Flush()).To(Equal("�"))
		})

		It("is empty when nothing is pending", func() {
			decoder.Write([]byte("done"))
			Expect(decoder.Flush()).To(BeEmpty())
		})

		It("clears the pending bytes", func() {
			decoder.Write([]byte{0xE6})
			decoder.Flush()
			Expect(decoder.Flush()).To(BeEmpty())
		})
	})

	Context("with invalid byte sequences", func() {
		It("passes through lone continuation bytes mid-chunk", func() {
			out := decoder.Write([]byte{'a', 0x92, 'b'})
			Expect(out).To(Equal("a\x92b"))
		})
	})
})
