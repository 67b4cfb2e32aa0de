package stream

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a record that failed to parse as a stream event.
// It is diagnostic only: the caller logs it and continues with the next
// record, so one malformed frame never aborts the stream.
type DecodeError struct {
	// Record is the raw record text that failed to decode.
	Record string

	// Err is the underlying parse error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding stream record: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeRecord parses one newline-framed record into an Event.
//
// Unknown type discriminators yield an Unrecognized event (with the raw
// record retained) rather than an error, so newer backends can add event
// types without breaking older clients. Only malformed JSON or malformed
// per-type content produces a *DecodeError.
func DecodeRecord(record string) (*Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(record), &env); err != nil {
		return nil, &DecodeError{Record: record, Err: err}
	}

	ev := &Event{
		Type:      EventType(env.Type),
		SessionID: env.SessionID,
		FileID:    env.FileID,
		Download:  env.Download,
		MessageID: env.MessageID,
	}

	switch ev.Type {
	case EventHeartbeat, EventDone:
		// No content payload.

	case EventStatus, EventText, EventError:
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, &ev.Content); err != nil {
				return nil, &DecodeError{Record: record, Err: fmt.Errorf("%s content: %w", env.Type, err)}
			}
		}

	case EventChart:
		chart := &ChartPayload{}
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, chart); err != nil {
				return nil, &DecodeError{Record: record, Err: fmt.Errorf("chart content: %w", err)}
			}
		}
		ev.Chart = chart

	case EventTable:
		table := &TablePayload{}
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, table); err != nil {
				return nil, &DecodeError{Record: record, Err: fmt.Errorf("table content: %w", err)}
			}
		}
		ev.Table = table

	default:
		ev.Type = EventUnrecognized
		ev.Raw = []byte(record)
	}

	return ev, nil
}
