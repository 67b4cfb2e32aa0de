package stream_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

var _ = Describe("DecodeRecord", func() {
	It("decodes a heartbeat", func() {
		ev, err := stream.DecodeRecord(`{"type":"heartbeat"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventHeartbeat))
		Expect(ev.Terminal()).To(BeFalse())
	})

	It("decodes status text", func() {
		ev, err := stream.DecodeRecord(`{"type":"status","content":"querying emission factors"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventStatus))
		Expect(ev.Content).To(Equal("querying emission factors"))
	})

	It("decodes a text fragment", func() {
		ev, err := stream.DecodeRecord(`{"type":"text","content":"NOx falls as speed rises"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventText))
		Expect(ev.Content).To(Equal("NOx falls as speed rises"))
	})

	It("decodes a chart payload", func() {
		record := `{"type":"chart","content":{` +
			`"type":"emission_curve","vehicle_type":"light_duty_gasoline","model_year":2020,` +
			`"pollutants":{"NOx":{"unit":"g/km","curve":[{"speed_kph":30,"emission_rate":0.756}]}},` +
			`"metadata":{"data_source":"MOVES", "speed_range":{"min":5,"max":120},"data_points":24},` +
			`"key_points":[{"speed":30,"rate":0.756,"label":"city cruise","pollutant":"NOx"}]}}`

		ev, err := stream.DecodeRecord(record)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventChart))
		Expect(ev.Chart).NotTo(BeNil())
		Expect(ev.Chart.Kind).To(Equal("emission_curve"))
		Expect(ev.Chart.VehicleType).To(Equal("light_duty_gasoline"))
		Expect(ev.Chart.Pollutants).To(HaveKey("NOx"))
		Expect(ev.Chart.Pollutants["NOx"].Curve).To(HaveLen(1))
		Expect(ev.Chart.Metadata.SpeedRange).To(HaveKeyWithValue("max", 120.0))
		Expect(ev.Chart.KeyPoints).To(HaveLen(1))
	})

	It("decodes a table payload with sibling download fields", func() {
		record := `{"type":"table","content":{` +
			`"columns":["segment","distance_km","nox_g"],` +
			`"preview_rows":[{"segment":1,"distance_km":12.5,"nox_g":3.1}],` +
			`"total_rows":40,` +
			`"summary":{"total_distance_km":480,"total_time_s":21600,"total_emissions_g":{"NOx":96.4}},` +
			`"download":{"url":"/api/download/result.csv","filename":"result.csv"}},` +
			`"file_id":"f-123"}`

		ev, err := stream.DecodeRecord(record)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventTable))
		Expect(ev.Table).NotTo(BeNil())
		Expect(ev.Table.Columns).To(HaveLen(3))
		Expect(ev.Table.DataRows()).To(HaveLen(1))
		Expect(ev.Table.Summary.EmissionsG()).To(HaveKeyWithValue("NOx", 96.4))
		Expect(ev.Table.HasDownload()).To(BeTrue())
		Expect(ev.FileID).To(Equal("f-123"))
	})

	It("falls back to the legacy total_emissions key", func() {
		record := `{"type":"table","content":{"summary":{"total_emissions":{"CO2":1540.2}}}}`

		ev, err := stream.DecodeRecord(record)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Table.Summary.EmissionsG()).To(HaveKeyWithValue("CO2", 1540.2))
	})

	It("decodes a done event with its sibling fields", func() {
		record := `{"type":"done","session_id":"s-9","file_id":"f-1","message_id":"m-2",` +
			`"download_file":{"url":"/api/download/r.csv","filename":"r.csv"}}`

		ev, err := stream.DecodeRecord(record)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventDone))
		Expect(ev.Terminal()).To(BeTrue())
		Expect(ev.SessionID).To(Equal("s-9"))
		Expect(ev.FileID).To(Equal("f-1"))
		Expect(ev.MessageID).To(Equal("m-2"))
		Expect(ev.Download).NotTo(BeNil())
		Expect(ev.Download.Filename).To(Equal("r.csv"))
	})

	It("decodes an error event", func() {
		ev, err := stream.DecodeRecord(`{"type":"error","content":"file too large"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal(stream.EventError))
		Expect(ev.Terminal()).To(BeTrue())
		Expect(ev.Content).To(Equal("file too large"))
	})

	Context("with unknown event types", func() {
		It("yields an unrecognized event instead of an error", func() {
			record := `{"type":"telemetry","content":{"cpu":0.4}}`

			ev, err := stream.DecodeRecord(record)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(stream.EventUnrecognized))
			Expect(string(ev.Raw)).To(Equal(record))
		})
	})

	Context("with malformed records", func() {
		It("returns a DecodeError for invalid JSON", func() {
			_, err := stream.DecodeRecord(`{"type":"text","content":`)

			var decodeErr *stream.DecodeError
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
			Expect(decodeErr.Record).To(Equal(`{"type":"text","content":`))
		})

		It("returns a DecodeError for mistyped content", func() {
			_, err := stream.DecodeRecord(`{"type":"text","content":{"nested":true}}`)
			Expect(err).To(HaveOccurred())
		})

		It("returns a DecodeError for a mistyped chart payload", func() {
			_, err := stream.DecodeRecord(`{"type":"chart","content":"not an object"}`)
			Expect(err).To(HaveOccurred())
		})
	})

	It("tolerates a missing content field on text events", func() {
		ev, err := stream.DecodeRecord(`{"type":"text"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Content).To(BeEmpty())
	})
})
