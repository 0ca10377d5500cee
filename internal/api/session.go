package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fitlife/tracker/internal/httputil"
	"github.com/fitlife/tracker/internal/notify"
	"github.com/fitlife/tracker/internal/tracking"
)

type startResponse struct {
	tracking.StartResult
	Error    string            `json:"error,omitempty"`
	Snapshot tracking.Snapshot `json:"snapshot"`
}

type stopResponse struct {
	Stopped  bool              `json:"stopped"`
	Snapshot tracking.Snapshot `json:"snapshot"`
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) showNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, notify.Render(s.session.Snapshot()))
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	res, err := s.session.Start()
	resp := startResponse{StartResult: res, Snapshot: s.session.Snapshot()}
	status := http.StatusOK
	switch {
	case errors.Is(err, tracking.ErrStepSourceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tracking.ErrStepPermissionDenied):
		status = http.StatusForbidden
	case err != nil:
		status = http.StatusInternalServerError
	}
	if err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, status, resp)
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	stopped := s.session.Stop()
	httputil.WriteJSONOK(w, stopResponse{Stopped: stopped, Snapshot: s.session.Snapshot()})
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.session.Reset()
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	rec, err := s.session.Save(r.Context())
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusCreated, rec)
	case errors.Is(err, tracking.ErrEmptySession):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, tracking.ErrNoRepository):
		httputil.ServiceUnavailable(w, err.Error())
	default:
		httputil.InternalServerError(w, fmt.Sprintf("Failed to save session: %v", err))
	}
}

// streamSession sends every published snapshot as a server-sent event.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, c := s.session.Subscribe()
	defer s.session.Unsubscribe(id)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case snap, ok := <-c:
			if !ok {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				logf("failed to encode snapshot: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

var _ Session = (*tracking.Controller)(nil)
