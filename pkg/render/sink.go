// Package render defines the sink interface that consumes state-machine
// output, plus the terminal implementation used by the CLI. The sink is the
// only place presentation happens; the stream pipeline and the message state
// machine operate on plain data.
package render

import "github.com/Kirito123l/emission-agent/pkg/message"

// Sink receives the side effects produced by applying stream events to a
// message. Calls arrive strictly in event order from a single goroutine.
type Sink interface {
	// Status shows transient progress text (the "thinking" indication).
	Status(text string)

	// ClearStatus hides the progress indication.
	ClearStatus()

	// TextDelta appends a reply text fragment.
	TextDelta(delta string)

	// Attachment renders a newly attached chart, table, or download control.
	Attachment(att *message.Attachment)

	// Finished reports the message's terminal outcome. Called exactly once
	// per message.
	Finished(outcome *message.Outcome)

	// RefreshSessions signals that the session list may have changed and
	// should be reloaded.
	RefreshSessions()
}

// Dispatch forwards an effect list to the sink, preserving order.
func Dispatch(sink Sink, effects []message.Effect) {
	for _, ef := range effects {
		switch ef.Kind {
		case message.EffectStatus:
			sink.Status(ef.Text)
		case message.EffectClearStatus:
			sink.ClearStatus()
		case message.EffectText:
			sink.TextDelta(ef.Text)
		case message.EffectAttachment:
			sink.Attachment(ef.Attachment)
		case message.EffectFinished:
			sink.Finished(ef.Outcome)
		}
	}
}
