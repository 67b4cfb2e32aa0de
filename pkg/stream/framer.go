package stream

import "strings"

// LineFramer buffers decoded text and yields complete, newline-terminated
// records. At most one partial record is retained between feeds.
type LineFramer struct {
	buf strings.Builder
}

// NewLineFramer returns an empty framer.
func NewLineFramer() *LineFramer {
	return &LineFramer{}
}

// Feed appends fragment to the internal buffer and returns every complete
// record now available, in order. Text after the last newline stays buffered.
// Blank records (empty after trimming) are filtered out.
func (f *LineFramer) Feed(fragment string) []string {
	if fragment == "" {
		return nil
	}

	f.buf.WriteString(fragment)
	combined := f.buf.String()

	last := strings.LastIndexByte(combined, '\n')
	if last < 0 {
		return nil
	}

	f.buf.Reset()
	f.buf.WriteString(combined[last+1:])

	var records []string
	for _, line := range strings.Split(combined[:last], "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, line)
	}

	return records
}

// Flush clears the framer and returns any non-empty leftover text from a
// stream that ended without a trailing newline. The leftover is not treated
// as a record; an unterminated final record is discarded, but it is returned
// so the caller can log the framing loss.
func (f *LineFramer) Flush() (discarded string, ok bool) {
	leftover := f.buf.String()
	f.buf.Reset()

	if strings.TrimSpace(leftover) == "" {
		return "", false
	}
	return leftover, true
}
