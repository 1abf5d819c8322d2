// Package scan provides a cursor-based token extractor over an in-memory
// string. It never mutates the buffer; only the cursor moves.
package scan

import "strings"

// Scanner walks a string buffer left to right.
type Scanner struct {
	buf string
	pos int
}

// New returns a Scanner positioned at the start of s.
func New(s string) *Scanner {
	return &Scanner{buf: s}
}

// UpTo returns the text between the cursor and the next occurrence of delim,
// or the remainder of the buffer when delim does not occur. The cursor moves
// to the match, and past delim when consume is true. Adjacent delimiters
// yield an empty token.
func (s *Scanner) UpTo(delim string, consume bool) string {
	rest := s.buf[s.pos:]
	if delim == "" {
		s.pos = len(s.buf)
		return rest
	}
	i := strings.Index(rest, delim)
	if i < 0 {
		s.pos = len(s.buf)
		return rest
	}
	s.pos += i
	if consume {
		s.pos += len(delim)
	}
	return rest[:i]
}

// Skip advances past lit if the buffer continues with it at the cursor.
func (s *Scanner) Skip(lit string) bool {
	if lit == "" || !strings.HasPrefix(s.buf[s.pos:], lit) {
		return false
	}
	s.pos += len(lit)
	return true
}

// AtEnd reports whether the cursor has reached the end of the buffer.
func (s *Scanner) AtEnd() bool {
	return s.pos >= len(s.buf)
}

// Pos is the current byte offset of the cursor.
func (s *Scanner) Pos() int {
	return s.pos
}

// Rest returns the unscanned remainder without moving the cursor.
func (s *Scanner) Rest() string {
	return s.buf[s.pos:]
}
