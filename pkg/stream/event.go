// Package stream implements the NDJSON streaming protocol consumer for the
// emission assistant backend. It converts raw transport chunks into decoded
// events: bytes are decoded to text (pkg/stream.ChunkDecoder), buffered into
// newline-terminated records (LineFramer), and parsed into Events
// (DecodeRecord). The Processor drives the full pipeline against a message
// state machine and a render sink.
//
// The wire format is one JSON object per line. Every object carries a "type"
// discriminator; all but "heartbeat" carry a "content" field whose shape
// depends on the type.
package stream

import "encoding/json"

// EventType is the wire discriminator of a stream event.
type EventType string

const (
	// EventHeartbeat is a liveness signal emitted while the backend is busy.
	// It carries no payload and causes no state change.
	EventHeartbeat EventType = "heartbeat"

	// EventStatus carries transient progress text ("thinking" indication),
	// superseded by the next status or cleared by the first content event.
	EventStatus EventType = "status"

	// EventText carries a text fragment to append to the accumulated reply.
	EventText EventType = "text"

	// EventChart carries a renderable emission-factor chart payload.
	EventChart EventType = "chart"

	// EventTable carries a renderable calculation-result table payload.
	EventTable EventType = "table"

	// EventDone is the terminal success signal. It may carry the session id
	// and, for backward compatibility, a file id for download synthesis.
	EventDone EventType = "done"

	// EventError is the terminal failure signal with a user-facing message.
	EventError EventType = "error"

	// EventUnrecognized marks an event whose type discriminator is unknown.
	// The state machine ignores it; the raw record is retained for diagnostics.
	EventUnrecognized EventType = "unrecognized"
)

// Event is the decoded representation of one stream record.
// Exactly which fields are populated depends on Type.
type Event struct {
	Type EventType

	// Content holds the free text of status, text, and error events.
	Content string

	// Chart is set for chart events.
	Chart *ChartPayload

	// Table is set for table events.
	Table *TablePayload

	// SessionID is set on done events when the backend allocated or
	// confirmed a session.
	SessionID string

	// FileID is set on done events (legacy download fallback) and on table
	// events that carry the id as a sibling of the content object.
	FileID string

	// Download is the download descriptor carried by done events and, in
	// newer backends, as a sibling field of table events.
	Download *DownloadFile

	// MessageID identifies the assistant message on done events, used for
	// message-level downloads.
	MessageID string

	// Raw is the undecoded record, retained only for unrecognized events.
	Raw []byte
}

// Terminal reports whether the event ends the message (done or error).
func (e *Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// ChartPayload is the emission-factor curve payload of a chart event.
type ChartPayload struct {
	Kind        string                     `json:"type,omitempty"`
	VehicleType string                     `json:"vehicle_type,omitempty"`
	ModelYear   int                        `json:"model_year,omitempty"`
	Pollutants  map[string]PollutantSeries `json:"pollutants,omitempty"`
	Metadata    ChartMetadata              `json:"metadata,omitempty"`
	KeyPoints   []KeyPoint                 `json:"key_points,omitempty"`
}

// PollutantSeries is one pollutant's emission curve.
type PollutantSeries struct {
	Curve []CurvePoint `json:"curve,omitempty"`
	Unit  string       `json:"unit,omitempty"`
}

// CurvePoint is a single speed/rate sample of an emission curve.
type CurvePoint struct {
	SpeedKPH     float64 `json:"speed_kph"`
	EmissionRate float64 `json:"emission_rate"`
}

// ChartMetadata carries provenance info about the curve data.
type ChartMetadata struct {
	DataSource string             `json:"data_source,omitempty"`
	SpeedRange map[string]float64 `json:"speed_range,omitempty"`
	DataPoints int                `json:"data_points,omitempty"`
}

// KeyPoint is a representative chart sample (e.g. city congestion, city
// cruise, highway) surfaced alongside the full curve.
type KeyPoint struct {
	Speed     float64 `json:"speed"`
	Rate      float64 `json:"rate"`
	Label     string  `json:"label,omitempty"`
	Pollutant string  `json:"pollutant,omitempty"`
}

// TablePayload is the tabular calculation-result payload of a table event.
//
// Rows come as ordered column/value maps; the backend sends either
// preview_rows (truncated) or rows (full), with totals describing the
// untruncated result.
type TablePayload struct {
	Columns      []string                 `json:"columns,omitempty"`
	Rows         []map[string]any         `json:"rows,omitempty"`
	PreviewRows  []map[string]any         `json:"preview_rows,omitempty"`
	TotalRows    int                      `json:"total_rows,omitempty"`
	TotalColumns int                      `json:"total_columns,omitempty"`
	Summary      *TableSummary            `json:"summary,omitempty"`
	Download     *DownloadFile            `json:"download,omitempty"`
	FileID       string                   `json:"file_id,omitempty"`
}

// DataRows returns the rows to display, preferring the preview set.
func (t *TablePayload) DataRows() []map[string]any {
	if len(t.PreviewRows) > 0 {
		return t.PreviewRows
	}
	return t.Rows
}

// HasDownload reports whether the table itself exposes a usable download
// reference (URL+filename descriptor, or an opaque file id).
func (t *TablePayload) HasDownload() bool {
	if t.Download != nil && t.Download.URL != "" && t.Download.Filename != "" {
		return true
	}
	return t.FileID != ""
}

// TableSummary aggregates a calculation result (distances, durations, and
// total emissions per pollutant in grams).
type TableSummary struct {
	TotalDistanceKM float64            `json:"total_distance_km,omitempty"`
	TotalTimeS      float64            `json:"total_time_s,omitempty"`
	TotalEmissionsG map[string]float64 `json:"total_emissions_g,omitempty"`

	// TotalEmissions is the legacy key used by older backends.
	TotalEmissions map[string]float64 `json:"total_emissions,omitempty"`
}

// EmissionsG returns total emissions per pollutant, merging the legacy key.
func (s *TableSummary) EmissionsG() map[string]float64 {
	if len(s.TotalEmissionsG) > 0 {
		return s.TotalEmissionsG
	}
	return s.TotalEmissions
}

// DownloadFile describes a retrievable result file.
type DownloadFile struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`

	// FileID is an opaque fallback identifier resolvable through the
	// backend's download-by-id endpoint.
	FileID string `json:"file_id,omitempty"`

	MessageID string `json:"message_id,omitempty"`
}

// envelope is the raw wire shape of one record before the per-type content
// decode.
type envelope struct {
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	SessionID string          `json:"session_id"`
	FileID    string          `json:"file_id"`
	Download  *DownloadFile   `json:"download_file"`
	MessageID string          `json:"message_id"`
}
