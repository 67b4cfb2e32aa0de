// Package session tracks the active conversation session on the client side.
//
// There is no ambient "current session" singleton: a Context value is passed
// into each send operation and mutated only at well-defined points: when a
// done event carries a session id, or when the caller starts a new session or
// clears a pending attachment.
package session

import "github.com/Kirito123l/emission-agent/pkg/stream"

// Context holds the client-side conversation state threaded through send
// operations. It has exactly one writer (the sequential processing loop plus
// the caller between sends) and must not be shared across concurrent streams.
type Context struct {
	// ActiveSessionID is the backend session this conversation belongs to.
	// Empty until the first done event (or an explicit resume) supplies one.
	ActiveSessionID string

	// PendingAttachment is the path of a spreadsheet staged for the next
	// send, cleared once the send is issued.
	PendingAttachment string
}

// Reset clears the context for a fresh conversation.
func (c *Context) Reset() {
	c.ActiveSessionID = ""
	c.PendingAttachment = ""
}

// ClearAttachment drops the staged spreadsheet.
func (c *Context) ClearAttachment() {
	c.PendingAttachment = ""
}

// Coordinator observes terminal stream events and maintains the session
// context. It holds no reference to message state.
type Coordinator struct {
	ctx *Context
}

// NewCoordinator returns a coordinator writing through to ctx.
func NewCoordinator(ctx *Context) *Coordinator {
	return &Coordinator{ctx: ctx}
}

// Observe inspects one decoded event. For done events it adopts the carried
// session id (when present and different from the active one) and reports
// that the caller's session list should be refreshed; the backend may have
// created the session or updated its title during the exchange.
func (c *Coordinator) Observe(ev *stream.Event) (refresh bool) {
	if ev.Type != stream.EventDone {
		return false
	}

	if ev.SessionID != "" && ev.SessionID != c.ctx.ActiveSessionID {
		c.ctx.ActiveSessionID = ev.SessionID
	}

	return true
}
