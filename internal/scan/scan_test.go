package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpToMultiCharDelimiter(t *testing.T) {
	s := New("SUMMARY:Meeting\r\nDTSTART:20240122\r\n")

	assert.Equal(t, "SUMMARY", s.UpTo(":", true))
	assert.Equal(t, "Meeting", s.UpTo("\r\n", true))
	assert.Equal(t, "DTSTART", s.UpTo(":", true))
	assert.False(t, s.AtEnd())
	assert.Equal(t, "20240122", s.UpTo("\r\n", true))
	assert.True(t, s.AtEnd())
}

func TestUpToWithoutConsume(t *testing.T) {
	s := New("22:Holiday")

	assert.Equal(t, "22", s.UpTo(":", false))
	assert.Equal(t, 2, s.Pos())
	assert.Equal(t, ":Holiday", s.Rest())
	require.True(t, s.Skip(":"))
	assert.False(t, s.Skip(":"))
	assert.Equal(t, "Holiday", s.UpTo("\n", false))
	assert.True(t, s.AtEnd())
}

func TestUpToMissingDelimiterReturnsRest(t *testing.T) {
	s := New("no delimiter here")

	assert.Equal(t, "no delimiter here", s.UpTo("\r\n", true))
	assert.True(t, s.AtEnd())
	assert.Equal(t, "", s.UpTo("\r\n", true))
}

func TestAdjacentDelimitersYieldEmptyTokens(t *testing.T) {
	s := New("a::b")

	assert.Equal(t, "a", s.UpTo(":", true))
	assert.Equal(t, "", s.UpTo(":", true))
	assert.Equal(t, "b", s.UpTo(":", true))
	assert.True(t, s.AtEnd())
}

func TestEmptyBufferIsAtEnd(t *testing.T) {
	s := New("")
	assert.True(t, s.AtEnd())
	assert.Equal(t, "", s.UpTo(":", true))
}
