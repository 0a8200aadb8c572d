package core

// streaming.go cleans up pasted or uploaded dataset text before tokenizing.
//
// Spreadsheet exports often carry a UTF-8 byte order mark or stray Latin-1
// bytes. The readers below strip the mark and replace invalid sequences with
// '?' as the bytes stream through, and cap how much text is accepted:
//
//   - BOMSkippingReader: drops a leading 0xEF 0xBB 0xBF
//   - UTF8Sanitizer: rewrites invalid UTF-8 to '?'
//   - SizeGuardReader: fails with ErrDatasetTooLarge past a byte limit
//
// NewDatasetReader stacks them in the order the tokenizer needs.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewDatasetReader wraps r for dataset tokenizing. maxBytes <= 0 disables
// the size guard.
func NewDatasetReader(r io.Reader, maxBytes int64) io.Reader {
	var out io.Reader = NewUTF8Sanitizer(NewBOMSkippingReader(r))
	if maxBytes > 0 {
		out = NewSizeGuardReader(out, maxBytes)
	}
	return out
}

// BOMSkippingReader drops a UTF-8 byte order mark at the start of the stream.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' without buffering the
// whole input. A multi-byte rune split across two reads is held back until
// the rest of it arrives, and Read never returns 0 bytes with a nil error.
type UTF8Sanitizer struct {
	reader  io.Reader
	buf     []byte
	pending []byte // incomplete rune carried into the next fill
	ready   []byte // sanitized bytes not yet returned
	err     error
}

// maxEmptyReads matches bufio's tolerance for a reader that makes no progress.
const maxEmptyReads = 100

// NewUTF8Sanitizer creates a sanitizing reader.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for empty := 0; len(s.ready) == 0; empty++ {
		if s.err != nil {
			return 0, s.err
		}
		if empty == maxEmptyReads {
			return 0, io.ErrNoProgress
		}
		s.fill(len(p))
	}

	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	return n, nil
}

// fill reads up to size new bytes after any pending rune and sanitizes them
// into ready.
func (s *UTF8Sanitizer) fill(size int) {
	need := len(s.pending) + max(size, utf8.UTFMax)
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	carried := copy(buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.reader.Read(buf[carried:])
	data := buf[:carried+n]
	if err != nil {
		s.err = err
	}

	if !isASCII(data) {
		// Any read error ends the stream, so a held-back tail is flushed.
		data = data[:s.sanitize(data, err != nil)]
	}
	s.ready = data
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, an incomplete rune at the end is moved to pending.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			// '?' keeps the output no longer than the input.
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// SizeGuardReader fails once more than Limit bytes have been read.
type SizeGuardReader struct {
	reader    io.Reader
	Limit     int64
	BytesRead int64
}

// NewSizeGuardReader creates a reader that allows at most limit bytes.
func NewSizeGuardReader(r io.Reader, limit int64) *SizeGuardReader {
	return &SizeGuardReader{reader: r, Limit: limit}
}

func (r *SizeGuardReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrDatasetTooLarge, r.Limit)
	}
	return n, err
}
