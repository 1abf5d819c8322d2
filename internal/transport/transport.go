// Package transport opens calendar feeds as raw HTTP/1.1 response streams.
//
// Unlike net/http it leaves the body framing alone: callers get the
// undecoded body together with a flag telling whether it is chunked, so the
// feed can be consumed line by line without buffering it whole.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	appLog "papercal/internal/log"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "papercal/0.1"
)

// StatusError is returned by Open for any status other than 200.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "transport: unexpected status " + e.Status
}

// Client dials feeds over TCP or TLS.
type Client struct {
	rootCAs   *x509.CertPool
	timeout   time.Duration
	userAgent string
}

// NewClient builds a Client. rootCA is an optional PEM bundle that replaces
// the system trust store for HTTPS feeds.
func NewClient(rootCA string) (*Client, error) {
	c := &Client{timeout: defaultTimeout, userAgent: defaultUserAgent}
	if strings.TrimSpace(rootCA) != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(rootCA)) {
			return nil, errors.New("transport: no certificates found in root CA PEM")
		}
		c.rootCAs = pool
	}
	return c, nil
}

// SetTimeout bounds a whole request, body included, when the context has no
// deadline of its own.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Response is an open feed. Body yields the raw, possibly chunked, payload.
type Response struct {
	StatusCode int
	Status     string
	Header     textproto.MIMEHeader
	Chunked    bool
	Body       io.Reader

	conn net.Conn
	stop func() bool
}

// Close releases the connection.
func (r *Response) Close() error {
	if r.stop != nil {
		r.stop()
	}
	return r.conn.Close()
}

// Open sends a GET for rawURL and returns once the response headers have
// been read. A non-200 status yields a *StatusError and no Response.
func (c *Client) Open(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse url: %w", err)
	}
	conn, err := c.dial(ctx, u)
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	_ = conn.SetDeadline(deadline)
	// Cancelling ctx unblocks any pending read.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })

	fail := func(err error) (*Response, error) {
		stop()
		conn.Close()
		return nil, err
	}

	appLog.Info("feed open", "url", RedactURL(rawURL))

	req := "GET " + u.RequestURI() + " HTTP/1.1\r\n" +
		"Host: " + u.Host + "\r\n" +
		"User-Agent: " + c.userAgent + "\r\n" +
		"Accept: text/calendar, */*\r\n" +
		"Accept-Encoding: identity\r\n" +
		"Connection: close\r\n\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		return fail(fmt.Errorf("transport: write request: %w", err))
	}

	br := bufio.NewReader(conn)
	tp := textproto.NewReader(br)
	code, status, err := readStatusLine(tp)
	if err != nil {
		return fail(err)
	}
	header, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return fail(fmt.Errorf("transport: read header: %w", err))
	}

	if code != 200 {
		appLog.Error("feed status", errors.New(status), "url", RedactURL(rawURL), "status", code)
		return fail(&StatusError{Code: code, Status: status})
	}

	resp := &Response{
		StatusCode: code,
		Status:     status,
		Header:     header,
		Chunked:    isChunked(header),
		Body:       br,
		conn:       conn,
		stop:       stop,
	}
	if !resp.Chunked {
		if n, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64); err == nil && n >= 0 {
			resp.Body = io.LimitReader(br, n)
		}
	}

	appLog.Info("feed ready", "url", RedactURL(rawURL), "status", code, "chunked", resp.Chunked)
	return resp, nil
}

func (c *Client) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	host := u.Hostname()
	port := u.Port()

	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "https":
		useTLS = true
		if port == "" {
			port = "443"
		}
	case "http":
		if port == "" {
			port = "80"
		}
	default:
		return nil, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	if host == "" {
		return nil, errors.New("transport: url has no host")
	}

	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: dial: %w", err)
	}
	if !useTLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		RootCAs:    c.rootCAs,
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: tls handshake: %w", err)
	}
	return tlsConn, nil
}

// readStatusLine parses "HTTP/1.1 200 OK".
func readStatusLine(tp *textproto.Reader) (int, string, error) {
	line, err := tp.ReadLine()
	if err != nil {
		return 0, "", fmt.Errorf("transport: read status line: %w", err)
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return 0, "", fmt.Errorf("transport: malformed status line %q", line)
	}
	codeText, _, _ := strings.Cut(status, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return 0, "", fmt.Errorf("transport: malformed status code %q", codeText)
	}
	return code, status, nil
}

func isChunked(h textproto.MIMEHeader) bool {
	for _, v := range h.Values("Transfer-Encoding") {
		for _, coding := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(coding), "chunked") {
				return true
			}
		}
	}
	return false
}

// RedactURL keeps only scheme and host so feed tokens never reach the logs.
//
//	https://example.com/private/basic.ics?token=abcd -> https://example.com/...(redacted)
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
