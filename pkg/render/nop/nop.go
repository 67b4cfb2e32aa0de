package nop

import "github.com/Kirito123l/emission-agent/pkg/message"

// Sink is a no-op render sink used for tests and headless processing.
type Sink struct{}

// NewSink creates a new no-op render sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Status(string)                    {}
func (s *Sink) ClearStatus()                     {}
func (s *Sink) TextDelta(string)                 {}
func (s *Sink) Attachment(*message.Attachment)   {}
func (s *Sink) Finished(*message.Outcome)        {}
func (s *Sink) RefreshSessions()                 {}
