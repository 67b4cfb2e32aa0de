package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
	"github.com/Kirito123l/emission-agent/pkg/message"
	"github.com/Kirito123l/emission-agent/pkg/stream"
)

const maxPreviewRows = 10

var (
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	headingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	downloadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// TerminalSink renders state-machine output to a terminal writer.
//
// Text deltas stream straight through as they arrive. With markdown enabled
// the full reply is additionally re-rendered through glamour once the
// message finishes, mirroring how the web frontend re-renders accumulated
// markdown on every delta.
type TerminalSink struct {
	w        io.Writer
	markdown bool

	// statusShowing tracks whether the current line is a status indicator
	// that must be erased before real content is printed.
	statusShowing bool
	wroteText     bool
}

// TerminalOption configures a TerminalSink.
type TerminalOption func(*TerminalSink)

// WithMarkdown enables glamour markdown rendering of the finished reply.
func WithMarkdown(enabled bool) TerminalOption {
	return func(s *TerminalSink) { s.markdown = enabled }
}

// NewTerminalSink creates a sink writing to w.
func NewTerminalSink(w io.Writer, opts ...TerminalOption) *TerminalSink {
	s := &TerminalSink{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TerminalSink) Status(text string) {
	s.eraseStatus()
	fmt.Fprintf(s.w, "\r  %s", statusStyle.Render(text))
	s.statusShowing = true
}

func (s *TerminalSink) ClearStatus() {
	s.eraseStatus()
}

func (s *TerminalSink) TextDelta(delta string) {
	s.eraseStatus()
	fmt.Fprint(s.w, delta)
	s.wroteText = true
}

func (s *TerminalSink) Attachment(att *message.Attachment) {
	s.eraseStatus()
	if s.wroteText {
		fmt.Fprintln(s.w)
		s.wroteText = false
	}

	switch att.Kind {
	case message.AttachmentChart:
		s.renderChart(att.Chart)
	case message.AttachmentTable:
		s.renderTable(att.Table)
	}

	if att.Download != nil {
		s.renderDownload(att.Download)
	}
}

func (s *TerminalSink) Finished(outcome *message.Outcome) {
	s.eraseStatus()
	if s.wroteText {
		fmt.Fprintln(s.w)
		s.wroteText = false
	}

	if outcome.Failed() {
		fmt.Fprintf(s.w, "\n  %s %s\n", cliui.FailMark, errorStyle.Render(outcome.Reason))
	}
}

func (s *TerminalSink) RefreshSessions() {
	// The CLI reloads session state between sends; nothing to draw here.
}

// RenderReply renders the accumulated reply text, through glamour when
// markdown is enabled. The chat command calls this after a finished message
// to show the formatted version of what streamed raw.
func (s *TerminalSink) RenderReply(text string) {
	if text == "" {
		return
	}

	if !s.markdown {
		return
	}

	rendered, err := cliui.RenderMarkdown(text)
	if err != nil {
		return
	}
	fmt.Fprint(s.w, rendered)
}

func (s *TerminalSink) eraseStatus() {
	if !s.statusShowing {
		return
	}
	// Overwrite the status line with spaces, then return to column zero.
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", 80)+"\r")
	s.statusShowing = false
}

func (s *TerminalSink) renderChart(chart *stream.ChartPayload) {
	if chart == nil {
		return
	}

	title := "Emission factor curve"
	if chart.VehicleType != "" {
		title = fmt.Sprintf("%s — %s · %d", title, chart.VehicleType, chart.ModelYear)
	}
	fmt.Fprintf(s.w, "\n  %s\n", headingStyle.Render(title))

	for name, series := range chart.Pollutants {
		unit := series.Unit
		if unit == "" {
			unit = "g/km"
		}
		fmt.Fprintf(s.w, "  %s\n", dimStyle.Render(
			fmt.Sprintf("%s: %d points (%s)", name, len(series.Curve), unit),
		))
	}

	if len(chart.KeyPoints) > 0 {
		t := newTable("Speed (km/h)", "Rate", "Scenario", "Pollutant")
		for _, kp := range chart.KeyPoints {
			t.Row(
				fmt.Sprintf("%.0f", kp.Speed),
				fmt.Sprintf("%.4f", kp.Rate),
				kp.Label,
				kp.Pollutant,
			)
		}
		fmt.Fprintln(s.w, indent(t.Render()))
	}
}

func (s *TerminalSink) renderTable(payload *stream.TablePayload) {
	if payload == nil {
		return
	}

	if summary := payload.Summary; summary != nil {
		fmt.Fprintf(s.w, "\n  %s\n", headingStyle.Render("Result summary"))
		t := newTable("Metric", "Value")
		if summary.TotalDistanceKM > 0 {
			t.Row("Total distance", fmt.Sprintf("%.3f km", summary.TotalDistanceKM))
		}
		if summary.TotalTimeS > 0 {
			t.Row("Total time", fmt.Sprintf("%.0f s", summary.TotalTimeS))
		}
		for pollutant, grams := range summary.EmissionsG() {
			t.Row(pollutant+" total", fmt.Sprintf("%.2f g", grams))
		}
		fmt.Fprintln(s.w, indent(t.Render()))
	}

	rows := payload.DataRows()
	if len(payload.Columns) == 0 || len(rows) == 0 {
		return
	}

	totalRows := payload.TotalRows
	if totalRows == 0 {
		totalRows = len(rows)
	}

	fmt.Fprintf(s.w, "\n  %s %s\n",
		headingStyle.Render("Result details"),
		dimStyle.Render(fmt.Sprintf("(%d rows, %d columns)", totalRows, len(payload.Columns))),
	)

	t := newTable(payload.Columns...)
	shown := rows
	if len(shown) > maxPreviewRows {
		shown = shown[:maxPreviewRows]
	}
	for _, row := range shown {
		cells := make([]string, len(payload.Columns))
		for i, col := range payload.Columns {
			cells[i] = formatCell(row[col])
		}
		t.Row(cells...)
	}
	fmt.Fprintln(s.w, indent(t.Render()))

	if totalRows > len(shown) {
		fmt.Fprintf(s.w, "  %s\n", dimStyle.Render(
			fmt.Sprintf("%d more rows in the full result file", totalRows-len(shown)),
		))
	}
}

func (s *TerminalSink) renderDownload(d *stream.DownloadFile) {
	switch {
	case d.URL != "" && d.Filename != "":
		fmt.Fprintf(s.w, "  %s %s\n", downloadStyle.Render("⤓"),
			fmt.Sprintf("%s  %s", d.Filename, dimStyle.Render(d.URL)))
	case d.FileID != "":
		fmt.Fprintf(s.w, "  %s %s\n", downloadStyle.Render("⤓"),
			dimStyle.Render(fmt.Sprintf("result file available: emission files download %s", d.FileID)))
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...)
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", val), "0"), ".")
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
