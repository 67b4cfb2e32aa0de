// Package chat drives a single streamed assistant response: it feeds raw
// transport chunks through decoding, framing, record parsing and the
// per-message state machine, forwarding the resulting effects to a render
// sink.
package chat

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/Kirito123l/emission-agent/pkg/message"
	"github.com/Kirito123l/emission-agent/pkg/render"
	"github.com/Kirito123l/emission-agent/pkg/session"
	"github.com/Kirito123l/emission-agent/pkg/stream"
)

const readBufferSize = 32 * 1024

// Processor consumes a newline-delimited JSON response body and applies it
// to a message. It is sequential: one goroutine, one pass over the body.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a Processor logging through the provided logger.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Run reads body to completion or until a terminal event arrives, applying
// every decoded event to msg and dispatching the emitted effects to sink.
// Session adoption is observed through coord, which triggers
// sink.RefreshSessions when a completed exchange may have changed the
// session list.
//
// Run always leaves msg terminated: if the body ends or fails before the
// protocol terminates the message, the message is failed with a transport
// error. The final outcome is returned.
func (p *Processor) Run(
	ctx context.Context,
	body io.Reader,
	msg *message.Message,
	sink render.Sink,
	coord *session.Coordinator,
) *message.Outcome {
	decoder := stream.NewChunkDecoder()
	framer := stream.NewLineFramer()

	buf := make([]byte, readBufferSize)
	for msg.Phase() != message.Terminated {
		if err := ctx.Err(); err != nil {
			p.finish(msg, sink, "request cancelled")
			break
		}

		n, err := body.Read(buf)
		if n > 0 {
			p.feed(decoder.Write(buf[:n]), framer, msg, sink, coord)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warn("stream read failed", zap.Error(err))
				p.finish(msg, sink, "connection to the assistant was lost")
				break
			}
			p.drain(decoder, framer, msg, sink, coord)
			p.finish(msg, sink, "the assistant stopped responding before finishing")
			break
		}
	}

	return msg.Outcome()
}

// feed frames decoded text into records and applies each one.
func (p *Processor) feed(
	text string,
	framer *stream.LineFramer,
	msg *message.Message,
	sink render.Sink,
	coord *session.Coordinator,
) {
	for _, record := range framer.Feed(text) {
		if msg.Phase() == message.Terminated {
			return
		}
		p.apply(record, msg, sink, coord)
	}
}

func (p *Processor) apply(
	record string,
	msg *message.Message,
	sink render.Sink,
	coord *session.Coordinator,
) {
	ev, err := stream.DecodeRecord(record)
	if err != nil {
		p.logger.Warn("skipping malformed stream record", zap.Error(err))
		return
	}

	render.Dispatch(sink, msg.Apply(ev))

	if coord != nil && coord.Observe(ev) {
		sink.RefreshSessions()
	}
}

// drain handles stream end: any bytes held back as a potentially incomplete
// UTF-8 sequence are decoded best-effort, and a leftover unterminated line
// is logged and discarded rather than parsed as a record.
func (p *Processor) drain(
	decoder *stream.ChunkDecoder,
	framer *stream.LineFramer,
	msg *message.Message,
	sink render.Sink,
	coord *session.Coordinator,
) {
	if tail := decoder.Flush(); tail != "" {
		p.feed(tail, framer, msg, sink, coord)
	}
	if discarded, ok := framer.Flush(); ok {
		p.logger.Warn("discarding unterminated trailing record",
			zap.Int("bytes", len(discarded)),
		)
	}
}

// finish fails the message if the protocol never terminated it.
func (p *Processor) finish(msg *message.Message, sink render.Sink, reason string) {
	if msg.Phase() == message.Terminated {
		return
	}
	render.Dispatch(sink, msg.Fail(reason))
}
