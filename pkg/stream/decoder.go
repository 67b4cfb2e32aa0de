package stream

import (
	"strings"
	"unicode/utf8"
)

// ChunkDecoder converts raw transport chunks into UTF-8 text fragments.
// A multi-byte sequence split across chunk boundaries is carried over to the
// next Write call instead of being decoded prematurely into replacement
// characters, so concatenating all returned fragments equals decoding the
// whole byte stream at once.
type ChunkDecoder struct {
	// pending holds the trailing bytes of an incomplete rune (at most 3).
	pending []byte
}

// NewChunkDecoder returns a decoder with no carried-over state.
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{}
}

// Write decodes the next chunk and returns the complete text it yields.
// Incomplete trailing runes are buffered until the next call.
func (d *ChunkDecoder) Write(chunk []byte) string {
	if len(chunk) == 0 {
		return ""
	}

	buf := chunk
	if len(d.pending) > 0 {
		buf = append(d.pending, chunk...)
		d.pending = nil
	}

	cut := completePrefixLen(buf)
	if cut < len(buf) {
		// Copy the tail: buf may alias the caller's chunk.
		d.pending = append([]byte(nil), buf[cut:]...)
	}

	return string(buf[:cut])
}

// Flush returns a best-effort decode of any bytes still held from a stream
// that ended mid-sequence. Truncated sequences decode to replacement
// characters; this is a known lossy edge at abnormal end-of-stream, not
// something the decoder attempts to repair.
func (d *ChunkDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return out
}

// completePrefixLen returns the length of the longest prefix of buf that
// does not end inside a multi-byte UTF-8 sequence.
func completePrefixLen(buf []byte) int {
	n := len(buf)

	// A rune is at most utf8.UTFMax bytes, so only the tail can be split.
	for back := 1; back <= utf8.UTFMax && back <= n; back++ {
		b := buf[n-back]
		if b < utf8.RuneSelf {
			// ASCII byte: everything up to the end is complete.
			return n
		}
		if !utf8.RuneStart(b) {
			continue
		}

		// Found the start of the trailing rune. Complete if it decodes
		// without consuming past the buffer end.
		r, size := utf8.DecodeRune(buf[n-back:])
		if r == utf8.RuneError && size <= 1 {
			// Invalid start byte this close to the end means the sequence
			// is truncated; hold it back.
			return n - back
		}
		if size == back {
			return n
		}
		return n - back
	}

	return n
}
