package transport

import (
	"context"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nDTSTART:20240122T051119Z\r\nSUMMARY:Meeting\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func chunkedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar")
	half := len(feed) / 2
	_, _ = io.WriteString(w, feed[:half])
	w.(http.Flusher).Flush()
	_, _ = io.WriteString(w, feed[half:])
}

func TestOpenChunked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(chunkedHandler))
	defer srv.Close()

	c, err := NewClient("")
	require.NoError(t, err)

	resp, err := c.Open(context.Background(), srv.URL+"/basic.ics")
	require.NoError(t, err)
	defer resp.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.Chunked)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// Framing is left in place for the caller to strip.
	assert.True(t, strings.HasSuffix(string(raw), "0\r\n\r\n"))
	assert.Contains(t, string(raw), "SUMMARY:Meeting")
}

func TestOpenContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cal/basic.ics", r.URL.Path)
		assert.Equal(t, "token=secret", r.URL.RawQuery)
		w.Header().Set("Content-Length", "15")
		_, _ = io.WriteString(w, "BEGIN:VCALENDAR")
	}))
	defer srv.Close()

	c, err := NewClient("")
	require.NoError(t, err)

	resp, err := c.Open(context.Background(), srv.URL+"/cal/basic.ics?token=secret")
	require.NoError(t, err)
	defer resp.Close()

	assert.False(t, resp.Chunked)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(raw))
}

func TestOpenStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := NewClient("")
	require.NoError(t, err)

	resp, err := c.Open(context.Background(), srv.URL+"/missing.ics")
	require.Error(t, err)
	assert.Nil(t, resp)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "404 Not Found", se.Status)
}

func TestOpenTLSWithTrustAnchor(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(chunkedHandler))
	defer srv.Close()

	rootCA := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))

	c, err := NewClient(rootCA)
	require.NoError(t, err)
	resp, err := c.Open(context.Background(), srv.URL+"/basic.ics")
	require.NoError(t, err)
	defer resp.Close()
	assert.True(t, resp.Chunked)

	// Without the anchor the self-signed certificate is rejected.
	untrusted, err := NewClient("")
	require.NoError(t, err)
	_, err = untrusted.Open(context.Background(), srv.URL+"/basic.ics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls handshake")
}

func TestNewClientRejectsBadPEM(t *testing.T) {
	_, err := NewClient("not a certificate")
	require.Error(t, err)
}

func TestOpenRejectsBadURL(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)

	_, err = c.Open(context.Background(), "ftp://example.com/cal.ics")
	assert.ErrorContains(t, err, "unsupported scheme")

	_, err = c.Open(context.Background(), "http:///cal.ics")
	assert.ErrorContains(t, err, "no host")
}

func TestOpenCancelledContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, err := NewClient("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Open(ctx, srv.URL+"/slow.ics")
	require.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)", RedactURL("https://calendar.example.com/private/abc/basic.ics?token=1"))
	assert.Equal(t, "ics://...(redacted)", RedactURL("not a url"))
}

func TestIsChunked(t *testing.T) {
	assert.True(t, isChunked(map[string][]string{"Transfer-Encoding": {"chunked"}}))
	assert.True(t, isChunked(map[string][]string{"Transfer-Encoding": {"gzip, Chunked"}}))
	assert.False(t, isChunked(map[string][]string{}))
}
