// Package message owns the mutable state of one in-flight assistant reply.
//
// The state machine is a synchronous reducer: applying a decoded stream event
// mutates the message and returns the ordered side effects a render sink
// should perform. Keeping the reducer free of any presentation concern lets
// the same logic drive a terminal UI, a streamed reply, a replayed history
// message, or a test harness identically.
package message

import (
	"strings"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

// Phase tracks where a message is in its lifecycle.
type Phase int

const (
	// Pending is the instant of message creation, before any event arrives.
	Pending Phase = iota

	// Streaming means at least one non-terminal event has been applied.
	Streaming

	// Terminated means a done or error event (or a transport failure) has
	// finalized the message. A terminated message is immutable.
	Terminated
)

// OutcomeKind distinguishes terminal success from terminal failure.
type OutcomeKind int

const (
	// OutcomeDone is terminal success.
	OutcomeDone OutcomeKind = iota

	// OutcomeError is terminal failure: either an error event from the
	// backend or a synthesized transport failure.
	OutcomeError
)

// Outcome is the single terminal result of a message.
type Outcome struct {
	Kind OutcomeKind

	// SessionID, FileID, Download and MessageID are carried by done events.
	SessionID string
	FileID    string
	Download  *stream.DownloadFile
	MessageID string

	// Reason is the failure message for error outcomes.
	Reason string
}

// Failed reports whether the outcome is a failure.
func (o *Outcome) Failed() bool { return o.Kind == OutcomeError }

// AttachmentKind identifies what an attachment renders as.
type AttachmentKind int

const (
	// AttachmentChart is an emission-factor chart block.
	AttachmentChart AttachmentKind = iota

	// AttachmentTable is a calculation-result table block.
	AttachmentTable

	// AttachmentDownload is a standalone download control synthesized from
	// a done event's file id when no table exposed one (legacy backends put
	// the file id only on done).
	AttachmentDownload
)

// Attachment is one structured block attached to a reply, in arrival order.
type Attachment struct {
	Kind  AttachmentKind
	Chart *stream.ChartPayload
	Table *stream.TablePayload

	// Download is the resolved download control for this attachment, if it
	// carries one.
	Download *stream.DownloadFile
}

// EffectKind identifies a side effect the render sink should perform.
type EffectKind int

const (
	// EffectStatus shows transient progress text.
	EffectStatus EffectKind = iota

	// EffectClearStatus hides the progress indication.
	EffectClearStatus

	// EffectText appends a reply text fragment.
	EffectText

	// EffectAttachment renders a newly attached chart, table, or download
	// control.
	EffectAttachment

	// EffectFinished reports the terminal outcome. Emitted exactly once.
	EffectFinished
)

// Effect is one entry of the side-effect emission list returned by Apply.
type Effect struct {
	Kind       EffectKind
	Text       string
	Attachment *Attachment
	Outcome    *Outcome
}

// Message is the state of one assistant reply, keyed by a caller-supplied id.
// It has exactly one writer: the sequential stream-processing loop.
type Message struct {
	id string

	text        strings.Builder
	attachments []Attachment
	statusText  string
	phase       Phase
	outcome     *Outcome
	hasDownload bool
}

// New creates a pending message with the given identifier.
func New(id string) *Message {
	return &Message{id: id}
}

// ID returns the caller-supplied message identifier.
func (m *Message) ID() string { return m.id }

// Text returns the reply text accumulated so far.
func (m *Message) Text() string { return m.text.String() }

// Attachments returns the attached blocks in arrival order.
func (m *Message) Attachments() []Attachment { return m.attachments }

// StatusText returns the last status text, or empty once content arrived.
func (m *Message) StatusText() string { return m.statusText }

// Phase returns the lifecycle phase.
func (m *Message) Phase() Phase { return m.phase }

// Outcome returns the terminal outcome, or nil while the message is live.
func (m *Message) Outcome() *Outcome { return m.outcome }

// HasDownloadControl reports whether any attachment exposes a download
// control.
func (m *Message) HasDownloadControl() bool { return m.hasDownload }

// Apply folds one decoded event into the message and returns the side
// effects for the sink, in order. Events applied after termination are
// ignored: the first terminal event wins and later ones are no-ops.
func (m *Message) Apply(ev *stream.Event) []Effect {
	if m.phase == Terminated {
		return nil
	}

	switch ev.Type {
	case stream.EventHeartbeat:
		// Liveness only.
		m.phase = Streaming
		return nil

	case stream.EventUnrecognized:
		// Forward-compatibility: skipped entirely.
		return nil

	case stream.EventStatus:
		m.phase = Streaming
		m.statusText = ev.Content
		return []Effect{{Kind: EffectStatus, Text: ev.Content}}

	case stream.EventText:
		m.phase = Streaming
		effects := m.clearStatus()
		m.text.WriteString(ev.Content)
		return append(effects, Effect{Kind: EffectText, Text: ev.Content})

	case stream.EventChart:
		m.phase = Streaming
		effects := m.clearStatus()
		att := m.attach(Attachment{Kind: AttachmentChart, Chart: ev.Chart})
		return append(effects, Effect{Kind: EffectAttachment, Attachment: att})

	case stream.EventTable:
		m.phase = Streaming
		effects := m.clearStatus()
		att := m.attach(Attachment{
			Kind:     AttachmentTable,
			Table:    ev.Table,
			Download: m.tableDownload(ev),
		})
		return append(effects, Effect{Kind: EffectAttachment, Attachment: att})

	case stream.EventDone:
		effects := m.clearStatus()
		m.phase = Terminated
		m.outcome = &Outcome{
			Kind:      OutcomeDone,
			SessionID: ev.SessionID,
			FileID:    ev.FileID,
			Download:  ev.Download,
			MessageID: ev.MessageID,
		}

		// Back-compatibility fallback: older backends carry the file id
		// only on done. Synthesize a download control unless an attachment
		// already exposes one.
		if ev.FileID != "" && !m.hasDownload {
			att := m.attach(Attachment{
				Kind:     AttachmentDownload,
				Download: doneDownload(ev),
			})
			effects = append(effects, Effect{Kind: EffectAttachment, Attachment: att})
		}

		return append(effects, Effect{Kind: EffectFinished, Outcome: m.outcome})

	case stream.EventError:
		effects := m.clearStatus()
		m.phase = Terminated
		m.outcome = &Outcome{Kind: OutcomeError, Reason: ev.Content}
		return append(effects, Effect{Kind: EffectFinished, Outcome: m.outcome})
	}

	return nil
}

// Fail finalizes the message with a transport failure. Text and attachments
// already applied stay visible; the error is reported alongside them.
// A no-op if the message already terminated.
func (m *Message) Fail(reason string) []Effect {
	if m.phase == Terminated {
		return nil
	}

	effects := m.clearStatus()
	m.phase = Terminated
	m.outcome = &Outcome{Kind: OutcomeError, Reason: reason}
	return append(effects, Effect{Kind: EffectFinished, Outcome: m.outcome})
}

// clearStatus drops the status text, returning the clear effect if one was
// showing.
func (m *Message) clearStatus() []Effect {
	if m.statusText == "" {
		return nil
	}
	m.statusText = ""
	return []Effect{{Kind: EffectClearStatus}}
}

// attach appends the attachment, tracking download-control exposure, and
// returns a pointer to the stored copy.
func (m *Message) attach(att Attachment) *Attachment {
	if att.Download != nil {
		m.hasDownload = true
	}
	m.attachments = append(m.attachments, att)
	return &m.attachments[len(m.attachments)-1]
}

// tableDownload resolves the download control a table attachment should
// expose: the event-level descriptor, the descriptor embedded in the
// payload, or an opaque file id. Returns nil when the table carries none or
// an earlier attachment already exposed a control.
func (m *Message) tableDownload(ev *stream.Event) *stream.DownloadFile {
	if m.hasDownload || ev.Table == nil {
		return nil
	}

	if ev.Download != nil && ev.Download.URL != "" && ev.Download.Filename != "" {
		return ev.Download
	}
	if d := ev.Table.Download; d != nil && d.URL != "" && d.Filename != "" {
		return d
	}
	if ev.Table.FileID != "" {
		return &stream.DownloadFile{FileID: ev.Table.FileID}
	}
	if ev.FileID != "" {
		return &stream.DownloadFile{FileID: ev.FileID}
	}

	return nil
}

// doneDownload builds the synthesized control for the done-event fallback.
func doneDownload(ev *stream.Event) *stream.DownloadFile {
	if ev.Download != nil && (ev.Download.URL != "" || ev.Download.Filename != "") {
		d := *ev.Download
		if d.FileID == "" {
			d.FileID = ev.FileID
		}
		return &d
	}
	return &stream.DownloadFile{FileID: ev.FileID, MessageID: ev.MessageID}
}
