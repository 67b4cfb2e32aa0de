package render_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Kirito123l/emission-agent/pkg/message"
	"github.com/Kirito123l/emission-agent/pkg/render"
	"github.com/Kirito123l/emission-agent/pkg/stream"
)

var _ = Describe("TerminalSink", func() {
	var (
		buf  *bytes.Buffer
		sink *render.TerminalSink
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		sink = render.NewTerminalSink(buf)
	})

	It("streams text deltas through verbatim", func() {
		sink.TextDelta("NOx at 30 km/h ")
		sink.TextDelta("is 0.756 g/km.")

		Expect(buf.String()).To(ContainSubstring("NOx at 30 km/h is 0.756 g/km."))
	})

	It("overwrites a status line before printing content", func() {
		sink.Status("computing emissions")
		sink.TextDelta("done")

		out := buf.String()
		Expect(out).To(ContainSubstring("computing emissions"))
		// The carriage-return overwrite precedes the content.
		Expect(out).To(ContainSubstring("\r"))
		Expect(out).To(HaveSuffix("done"))
	})

	It("renders a chart attachment with its key points", func() {
		sink.Attachment(&message.Attachment{
			Kind: message.AttachmentChart,
			Chart: &stream.ChartPayload{
				VehicleType: "light_truck",
				ModelYear:   2019,
				Pollutants: map[string]stream.PollutantSeries{
					"NOx": {Unit: "g/km", Curve: []stream.CurvePoint{{SpeedKPH: 30, EmissionRate: 0.756}}},
				},
				KeyPoints: []stream.KeyPoint{
					{Speed: 70, Rate: 0.5731, Label: "optimal", Pollutant: "NOx"},
				},
			},
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("Emission factor curve"))
		Expect(out).To(ContainSubstring("light_truck"))
		Expect(out).To(ContainSubstring("NOx: 1 points (g/km)"))
		Expect(out).To(ContainSubstring("optimal"))
		Expect(out).To(ContainSubstring("0.5731"))
	})

	It("renders a table attachment with summary and row cap", func() {
		rows := make([]map[string]any, 15)
		for i := range rows {
			rows[i] = map[string]any{"segment": i + 1, "nox_g": 1.5}
		}

		sink.Attachment(&message.Attachment{
			Kind: message.AttachmentTable,
			Table: &stream.TablePayload{
				Columns:   []string{"segment", "nox_g"},
				Rows:      rows,
				TotalRows: 40,
				Summary: &stream.TableSummary{
					TotalDistanceKM: 480,
					TotalEmissionsG: map[string]float64{"NOx": 96.4},
				},
			},
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("Result summary"))
		Expect(out).To(ContainSubstring("480.000 km"))
		Expect(out).To(ContainSubstring("NOx total"))
		Expect(out).To(ContainSubstring("96.40 g"))
		Expect(out).To(ContainSubstring("(40 rows, 2 columns)"))
		Expect(out).To(ContainSubstring("30 more rows"))
	})

	It("renders a download control with URL and filename", func() {
		sink.Attachment(&message.Attachment{
			Kind:     message.AttachmentDownload,
			Download: &stream.DownloadFile{URL: "/api/download/r.csv", Filename: "r.csv"},
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("r.csv"))
		Expect(out).To(ContainSubstring("/api/download/r.csv"))
	})

	It("points at the files command for an id-only download", func() {
		sink.Attachment(&message.Attachment{
			Kind:     message.AttachmentDownload,
			Download: &stream.DownloadFile{FileID: "f-9"},
		})

		Expect(buf.String()).To(ContainSubstring("emission files download f-9"))
	})

	It("reports a failed outcome", func() {
		sink.Finished(&message.Outcome{Kind: message.OutcomeError, Reason: "backend overloaded"})

		Expect(buf.String()).To(ContainSubstring("backend overloaded"))
	})

	It("prints nothing extra on a successful outcome", func() {
		sink.Finished(&message.Outcome{Kind: message.OutcomeDone})

		Expect(buf.String()).To(BeEmpty())
	})

	Describe("RenderReply", func() {
		It("is silent without markdown", func() {
			sink.RenderReply("# Heading")
			Expect(buf.String()).To(BeEmpty())
		})

		It("renders markdown when enabled", func() {
			md := render.NewTerminalSink(buf, render.WithMarkdown(true))
			md.RenderReply("plain words")

			Expect(buf.String()).To(ContainSubstring("plain words"))
		})
	})
})

var _ = Describe("Dispatch", func() {
	It("forwards effects to the sink in order", func() {
		buf := &bytes.Buffer{}
		sink := render.NewTerminalSink(buf)

		render.Dispatch(sink, []message.Effect{
			{Kind: message.EffectStatus, Text: "thinking"},
			{Kind: message.EffectClearStatus},
			{Kind: message.EffectText, Text: "answer"},
		})

		Expect(buf.String()).To(HaveSuffix("answer"))
	})
})
