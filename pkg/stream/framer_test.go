package stream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

var _ = Describe("LineFramer", func() {
	var framer *stream.LineFramer

	BeforeEach(func() {
		framer = stream.NewLineFramer()
	})

	It("yields nothing until a newline arrives", func() {
		Expect(framer.Feed(`{"type":"text",`)).To(BeEmpty())
		Expect(framer.Feed(`"content":"hi"}`)).To(BeEmpty())

		records := framer.Feed("\n")
		Expect(records).To(Equal([]string{`{"type":"text","content":"hi"}`}))
	})

	It("yields multiple records from a single feed, in order", func() {
		records := framer.Feed("first\nsecond\nthird\n")
		Expect(records).To(Equal([]string{"first", "second", "third"}))
	})

	It("keeps text after the last newline buffered", func() {
		records := framer.Feed("complete\npartial")
		Expect(records).To(Equal([]string{"complete"}))

		records = framer.Feed(" record\n")
		Expect(records).To(Equal([]string{"partial record"}))
	})

	It("filters out blank and whitespace-only records", func() {
		records := framer.Feed("one\n\n  \t\ntwo\n")
		Expect(records).To(Equal([]string{"one", "two"}))
	})

	It("handles a record split one byte at a time", func() {
		input := "abc\ndef\n"
		var records []string
		for i := 0; i < len(input); i++ {
			records = append(records, framer.Feed(input[i:i+1])...)
		}
		Expect(records).To(Equal([]string{"abc", "def"}))
	})

	It("ignores empty feeds", func() {
		Expect(framer.Feed("")).To(BeEmpty())
	})

	Describe("Flush", func() {
		It("reports a non-empty unterminated tail", func() {
			framer.Feed("done\ntrailing bytes")

			discarded, ok := framer.Flush()
			Expect(ok).To(BeTrue())
			Expect(discarded).To(Equal("trailing bytes"))
		})

		It("reports nothing when the stream ended on a newline", func() {
			framer.Feed("done\n")

			_, ok := framer.Flush()
			Expect(ok).To(BeFalse())
		})

		It("reports nothing for a whitespace-only tail", func() {
			framer.Feed("done\n  ")

			_, ok := framer.Flush()
			Expect(ok).To(BeFalse())
		})

		It("clears the buffer", func() {
			framer.Feed("tail")
			framer.Flush()

			_, ok := framer.Flush()
			Expect(ok).To(BeFalse())
		})
	})
})
