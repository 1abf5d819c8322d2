package ics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LineReader yields logical text lines from an HTTP body that may still
// carry chunked transfer framing. Chunk-size lines and chunk trailers are
// dropped, and a line split across a chunk boundary is joined back together.
// At most one partial line is held in memory.
type LineReader struct {
	r       *bufio.Reader
	chunked bool

	remaining int64 // bytes left in the current chunk
	partial   strings.Builder
	done      bool
}

// NewLineReader wraps r. chunked must reflect the response's
// Transfer-Encoding header.
func NewLineReader(r io.Reader, chunked bool) *LineReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &LineReader{r: br, chunked: chunked}
}

// ReadLine returns the next line without its CRLF or LF terminator. It
// returns io.EOF once the body (or the terminating zero-size chunk) is
// exhausted.
func (lr *LineReader) ReadLine() (string, error) {
	if !lr.chunked {
		line, err := lr.r.ReadString('\n')
		if line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return lr.readChunkedLine()
}

func (lr *LineReader) readChunkedLine() (string, error) {
	for {
		if lr.done {
			if lr.partial.Len() > 0 {
				return lr.flush(), nil
			}
			return "", io.EOF
		}

		if lr.remaining == 0 {
			size, err := lr.readChunkSize()
			if err != nil {
				lr.done = true
				if errors.Is(err, io.EOF) {
					continue
				}
				return "", err
			}
			if size == 0 {
				lr.done = true
				continue
			}
			lr.remaining = size
		}

		piece, err := lr.r.ReadString('\n')
		n := int64(len(piece))

		if n > lr.remaining {
			// The chunk ends inside this line. What follows the chunk data
			// is the CRLF that closes the chunk; the rest of the logical
			// line arrives after the next size line.
			lr.partial.WriteString(piece[:lr.remaining])
			lr.remaining = 0
			continue
		}

		lr.remaining -= n
		lr.partial.WriteString(piece)
		if strings.HasSuffix(piece, "\n") {
			return lr.flush(), nil
		}

		if err != nil {
			lr.done = true
			if errors.Is(err, io.EOF) {
				continue
			}
			return "", err
		}
	}
}

// readChunkSize skips blank lines (chunk trailers) and parses the next
// hexadecimal chunk size, ignoring chunk extensions.
func (lr *LineReader) readChunkSize() (int64, error) {
	for {
		line, err := lr.r.ReadString('\n')
		text := strings.TrimSpace(line)
		if text == "" {
			if err != nil {
				return 0, err
			}
			continue
		}
		if i := strings.IndexByte(text, ';'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		size, perr := strconv.ParseInt(text, 16, 64)
		if perr != nil || size < 0 {
			return 0, fmt.Errorf("ics: bad chunk size %q", text)
		}
		return size, nil
	}
}

func (lr *LineReader) flush() string {
	line := trimEOL(lr.partial.String())
	lr.partial.Reset()
	return line
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
