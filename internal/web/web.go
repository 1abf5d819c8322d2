package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"papercal/internal/battery"
	"papercal/internal/config"
	appLog "papercal/internal/log"
	"papercal/internal/render"
)

// Snapshot is the result of the latest wake cycle, published for the
// /calendar page and the APIs.
type Snapshot struct {
	View render.MonthView
	// Calendar is the month index exported as iCalendar.
	Calendar  string
	UpdatedAt time.Time
}

// Server provides the panel page and read-only APIs over the latest
// snapshot.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	battery battery.Reader

	snapMu sync.RWMutex
	snap   *Snapshot

	// In-memory cache for battery status. This avoids hitting I2C on every
	// single HTTP call.
	batteryMu    sync.RWMutex
	batteryCache *batteryCache
}

//go:embed templates/calendar.html.tmpl
var templatesFS embed.FS

var calendarTmpl = template.Must(template.ParseFS(templatesFS, "templates/calendar.html.tmpl"))

// NewServer constructs a new Server. br may be nil when no gauge is wired.
func NewServer(cfg *config.Config, br battery.Reader) *Server {
	if br == nil {
		br = battery.Open(battery.KindNone)
	}
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		battery: br,
	}
	s.registerRoutes()
	return s
}

// Publish replaces the snapshot served by /calendar and the APIs.
func (s *Server) Publish(snap Snapshot) {
	s.snapMu.Lock()
	s.snap = &snap
	s.snapMu.Unlock()
}

func (s *Server) snapshot() *Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
// Loopback requests to /calendar pass through so the headless capture does
// not need credentials.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || (r.URL.Path == "/calendar" && isLoopback(r.RemoteAddr)) {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="papercal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs an HTTP server on listen until ctx is canceled, then shuts it
// down gracefully.
func Serve(ctx context.Context, listen string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/battery", s.handleBattery)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar renders the panel-sized grid captured by headless Chromium.
// Until the first snapshot is published the page carries data-ready="false".
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()

	var data pageData
	if snap == nil {
		data = emptyPage()
	} else {
		data = newPageData(snap.View)
	}

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, data); err != nil {
		appLog.Error("calendar template failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// handleEvents returns the laid-out month as JSON.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no calendar loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		MonthView: snap.View,
		UpdatedAt: snap.UpdatedAt,
		Timezone:  s.cfg.Timezone,
	})
}

// handleICS serves the current month as iCalendar.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		http.Error(w, "no calendar loaded yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(snap.Calendar))
}

// handleBattery exposes current battery status. Battery status does not need
// sub-second precision, so a short TTL cache is sufficient.
func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	const batteryCacheTTL = 30 * time.Second
	now := time.Now()

	s.batteryMu.RLock()
	bc := s.batteryCache
	s.batteryMu.RUnlock()
	if bc != nil && now.Sub(bc.updatedAt) < batteryCacheTTL {
		writeJSON(w, http.StatusOK, bc.status)
		return
	}

	status, err := s.battery.Read(r.Context())
	if errors.Is(err, battery.ErrUnavailable) {
		writeJSON(w, http.StatusOK, status)
		return
	}
	if err != nil {
		appLog.Error("battery read failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read battery")
		return
	}

	s.batteryMu.Lock()
	s.batteryCache = &batteryCache{status: status, updatedAt: now}
	s.batteryMu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.cfg.Display.PreviewPath)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	render.MonthView
	UpdatedAt time.Time `json:"updated_at"`
	Timezone  float64   `json:"timezone"`
}

// batteryCache holds the last known battery status and its timestamp.
type batteryCache struct {
	status    battery.Status
	updatedAt time.Time
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
