package client

import (
	"encoding/json"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

// Session is a stored conversation as returned by the sessions API.
type Session struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// sessionsResponse wraps the session listing.
type sessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Success  bool      `json:"success"`
}

// newSessionResponse is the body of a session creation call.
type newSessionResponse struct {
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
}

// HistoryMessage is one stored exchange turn, user or assistant.
type HistoryMessage struct {
	Role         string               `json:"role"`
	Content      string               `json:"content"`
	DataType     string               `json:"data_type,omitempty"`
	ChartData    *stream.ChartPayload `json:"chart_data,omitempty"`
	TableData    *stream.TablePayload `json:"table_data,omitempty"`
	FileID       string               `json:"file_id,omitempty"`
	DownloadFile *stream.DownloadFile `json:"download_file,omitempty"`
	MessageID    string               `json:"message_id,omitempty"`
	CreatedAt    string               `json:"created_at,omitempty"`
}

// Events converts a stored assistant turn into the event sequence the live
// stream would have produced, so history replays through the same message
// state machine as streaming and single-shot replies. Other roles yield no
// events.
func (m *HistoryMessage) Events() []*stream.Event {
	if m.Role != "assistant" {
		return nil
	}

	var events []*stream.Event

	if m.Content != "" {
		events = append(events, &stream.Event{
			Type:    stream.EventText,
			Content: m.Content,
		})
	}
	if m.ChartData != nil {
		events = append(events, &stream.Event{
			Type:  stream.EventChart,
			Chart: m.ChartData,
		})
	}
	if m.TableData != nil {
		events = append(events, &stream.Event{
			Type:  stream.EventTable,
			Table: m.TableData,
		})
	}

	fileID := m.FileID
	if fileID == "" && m.DownloadFile != nil {
		fileID = m.DownloadFile.FileID
	}

	return append(events, &stream.Event{
		Type:      stream.EventDone,
		FileID:    fileID,
		Download:  m.DownloadFile,
		MessageID: m.MessageID,
	})
}

// historyResponse wraps a session's stored messages.
type historyResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
	Success   bool             `json:"success"`
}

// ChatReply is the non-streaming chat response: the complete assistant
// turn in a single JSON body.
type ChatReply struct {
	Reply        string               `json:"reply"`
	SessionID    string               `json:"session_id"`
	Success      bool                 `json:"success"`
	DataType     string               `json:"data_type,omitempty"`
	ChartData    *stream.ChartPayload `json:"chart_data,omitempty"`
	TableData    *stream.TablePayload `json:"table_data,omitempty"`
	FileID       string               `json:"file_id,omitempty"`
	DownloadFile *stream.DownloadFile `json:"download_file,omitempty"`
	MessageID    string               `json:"message_id,omitempty"`
}

// Events converts the single-shot reply into the event sequence the
// streaming protocol would have produced, so both transports replay
// through the same message state machine.
func (r *ChatReply) Events() []*stream.Event {
	if !r.Success {
		return []*stream.Event{{
			Type:    stream.EventError,
			Content: r.Reply,
		}}
	}

	var events []*stream.Event

	if r.Reply != "" {
		events = append(events, &stream.Event{
			Type:    stream.EventText,
			Content: r.Reply,
		})
	}
	if r.ChartData != nil {
		events = append(events, &stream.Event{
			Type:  stream.EventChart,
			Chart: r.ChartData,
		})
	}
	if r.TableData != nil {
		events = append(events, &stream.Event{
			Type:  stream.EventTable,
			Table: r.TableData,
		})
	}

	return append(events, &stream.Event{
		Type:      stream.EventDone,
		SessionID: r.SessionID,
		FileID:    r.FileID,
		Download:  r.DownloadFile,
		MessageID: r.MessageID,
	})
}

// FilePreview is the inspection result for an uploaded spreadsheet.
type FilePreview struct {
	Filename string           `json:"filename"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Success  bool             `json:"success"`
}

// apiError is the error body returned by the backend for non-2xx responses.
type apiError struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Success bool   `json:"success"`
}

func (e *apiError) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

func decodeAPIError(body []byte) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.message() != "" {
		return ae.message()
	}
	return string(body)
}
