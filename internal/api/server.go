// Package api serves the tracking session and the stored activities over
// HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/board"
	"github.com/fitlife/tracker/internal/config"
	"github.com/fitlife/tracker/internal/httputil"
	"github.com/fitlife/tracker/internal/monitoring"
	"github.com/fitlife/tracker/internal/timeutil"
	"github.com/fitlife/tracker/internal/tracking"
	"github.com/fitlife/tracker/internal/version"
)

var logf = monitoring.Prefixed("api")

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Session is the tracking controller as seen by the handlers.
type Session interface {
	Snapshot() tracking.Snapshot
	Subscribe() (string, <-chan tracking.Snapshot)
	Unsubscribe(id string)
	Start() (tracking.StartResult, error)
	Stop() bool
	Reset()
	Save(ctx context.Context) (activity.Activity, error)
}

// BoardStatus reports the sensor board state. *board.Board implements it.
type BoardStatus interface {
	Status() board.Status
}

// Options configure a Server. Session and Activities are required.
type Options struct {
	Session     Session
	Activities  activity.Repository
	Permissions *tracking.PermissionSwitch
	Board       BoardStatus
	Config      *config.TrackingConfig
	Clock       timeutil.Clock
	// DayLabel names today for the daily goal in /api/activities/stats.
	DayLabel func(time.Time) string
}

type Server struct {
	session  Session
	repo     activity.Repository
	perms    *tracking.PermissionSwitch
	board    BoardStatus
	cfg      *config.TrackingConfig
	clock    timeutil.Clock
	dayLabel func(time.Time) string
}

func NewServer(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.EmptyTrackingConfig()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.DayLabel == nil {
		opts.DayLabel = func(t time.Time) string { return t.UTC().Format("Mon") }
	}
	return &Server{
		session:  opts.Session,
		repo:     opts.Activities,
		perms:    opts.Permissions,
		board:    opts.Board,
		cfg:      opts.Config,
		clock:    opts.Clock,
		dayLabel: opts.DayLabel,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.showSession)
	mux.HandleFunc("/api/session/start", s.startSession)
	mux.HandleFunc("/api/session/stop", s.stopSession)
	mux.HandleFunc("/api/session/reset", s.resetSession)
	mux.HandleFunc("/api/session/save", s.saveSession)
	mux.HandleFunc("/api/session/events", s.streamSession)
	mux.HandleFunc("/api/session/notification", s.showNotification)
	mux.HandleFunc("/api/activities", s.handleActivities)
	mux.HandleFunc("/api/activities/stats", s.showStats)
	mux.HandleFunc("/api/activities/{id}", s.handleActivity)
	mux.HandleFunc("/api/permissions", s.handlePermissions)
	mux.HandleFunc("/api/board", s.showBoard)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Current())
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if s.perms == nil {
		httputil.ServiceUnavailable(w, "permissions are fixed")
		return
	}
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.perms.Permissions())
	case http.MethodPut:
		var p tracking.Permissions
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.perms.Set(p)
		logf("permissions set: steps=%t location=%t", p.Steps, p.Location)
		httputil.WriteJSONOK(w, p)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.board == nil {
		httputil.NotFound(w, "no sensor board attached")
		return
	}
	httputil.WriteJSONOK(w, s.board.Status())
}
