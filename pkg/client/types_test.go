package client_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kirito123l/emission-agent/pkg/client"
	"github.com/Kirito123l/emission-agent/pkg/message"
	"github.com/Kirito123l/emission-agent/pkg/stream"
)

var _ = Describe("ChatReply", func() {
	Describe("Events", func() {
		It("replays a text reply as text followed by done", func() {
			reply := &client.ChatReply{
				Reply:     "NOx is 0.756 g/km",
				SessionID: "s-1",
				MessageID: "m-1",
				Success:   true,
			}

			events := reply.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Type).To(Equal(stream.EventText))
			Expect(events[0].Content).To(Equal("NOx is 0.756 g/km"))
			Expect(events[1].Type).To(Equal(stream.EventDone))
			Expect(events[1].SessionID).To(Equal("s-1"))
			Expect(events[1].MessageID).To(Equal("m-1"))
		})

		It("orders structured payloads before the terminal event", func() {
			reply := &client.ChatReply{
				Reply:        "summary",
				ChartData:    &stream.ChartPayload{Kind: "emission_curve"},
				TableData:    &stream.TablePayload{TotalRows: 4},
				FileID:       "f-1",
				DownloadFile: &stream.DownloadFile{URL: "/api/download/r.csv", Filename: "r.csv"},
				Success:      true,
			}

			events := reply.Events()
			Expect(events).To(HaveLen(4))
			Expect(events[0].Type).To(Equal(stream.EventText))
			Expect(events[1].Type).To(Equal(stream.EventChart))
			Expect(events[2].Type).To(Equal(stream.EventTable))
			Expect(events[3].Type).To(Equal(stream.EventDone))
			Expect(events[3].FileID).To(Equal("f-1"))
			Expect(events[3].Download.Filename).To(Equal("r.csv"))
		})

		It("emits only a done event for an empty successful reply", func() {
			reply := &client.ChatReply{SessionID: "s-1", Success: true}

			events := reply.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(stream.EventDone))
		})

		It("collapses a failed reply to a single error event", func() {
			reply := &client.ChatReply{Reply: "rate limited", Success: false}

			events := reply.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(stream.EventError))
			Expect(events[0].Content).To(Equal("rate limited"))
		})
	})
})

var _ = Describe("HistoryMessage", func() {
	Describe("Events", func() {
		It("yields nothing for user turns", func() {
			msg := &client.HistoryMessage{Role: "user", Content: "emission curve please"}
			Expect(msg.Events()).To(BeEmpty())
		})

		It("replays a stored text turn as text followed by done", func() {
			msg := &client.HistoryMessage{
				Role:      "assistant",
				Content:   "NOx is 0.756 g/km",
				MessageID: "m-1",
			}

			events := msg.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Type).To(Equal(stream.EventText))
			Expect(events[0].Content).To(Equal("NOx is 0.756 g/km"))
			Expect(events[1].Type).To(Equal(stream.EventDone))
			Expect(events[1].MessageID).To(Equal("m-1"))
		})

		It("orders stored payloads like the live stream", func() {
			msg := &client.HistoryMessage{
				Role:         "assistant",
				Content:      "summary",
				ChartData:    &stream.ChartPayload{Kind: "emission_curve"},
				TableData:    &stream.TablePayload{TotalRows: 4},
				FileID:       "f-1",
				DownloadFile: &stream.DownloadFile{URL: "/api/download/r.csv", Filename: "r.csv"},
			}

			events := msg.Events()
			Expect(events).To(HaveLen(4))
			Expect(events[0].Type).To(Equal(stream.EventText))
			Expect(events[1].Type).To(Equal(stream.EventChart))
			Expect(events[2].Type).To(Equal(stream.EventTable))
			Expect(events[3].Type).To(Equal(stream.EventDone))
			Expect(events[3].FileID).To(Equal("f-1"))
			Expect(events[3].Download.Filename).To(Equal("r.csv"))
		})

		It("carries the descriptor's file id when the turn stored none", func() {
			msg := &client.HistoryMessage{
				Role:         "assistant",
				Content:      "result ready",
				DownloadFile: &stream.DownloadFile{FileID: "f-7", URL: "/api/file/download/f-7", Filename: "route_emissions.csv"},
			}

			events := msg.Events()
			done := events[len(events)-1]
			Expect(done.Type).To(Equal(stream.EventDone))
			Expect(done.FileID).To(Equal("f-7"))
		})

		It("drives the message state machine to the same attachments as streaming", func() {
			msg := &client.HistoryMessage{
				Role:         "assistant",
				Content:      "per-segment totals attached",
				TableData:    &stream.TablePayload{TotalRows: 2},
				FileID:       "f-9",
				DownloadFile: &stream.DownloadFile{URL: "/api/file/download/f-9", Filename: "route_emissions.csv"},
				MessageID:    "m-9",
			}

			turn := message.New(msg.MessageID)
			for _, ev := range msg.Events() {
				turn.Apply(ev)
			}

			Expect(turn.Phase()).To(Equal(message.Terminated))
			Expect(turn.Text()).To(Equal("per-segment totals attached"))
			Expect(turn.HasDownloadControl()).To(BeTrue())

			atts := turn.Attachments()
			Expect(atts).To(HaveLen(2))
			Expect(atts[0].Kind).To(Equal(message.AttachmentTable))
			Expect(atts[1].Kind).To(Equal(message.AttachmentDownload))
			Expect(atts[1].Download.Filename).To(Equal("route_emissions.csv"))
		})
	})
})
