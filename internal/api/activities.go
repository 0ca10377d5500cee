package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/httputil"
	"github.com/fitlife/tracker/internal/units"
)

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		acts, err := s.repo.List(r.Context())
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to list activities: %v", err))
			return
		}
		if acts == nil {
			acts = []activity.Activity{}
		}
		httputil.WriteJSONOK(w, acts)
	case http.MethodPost:
		var d activity.Draft
		if err := httputil.DecodeJSON(r, &d); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		a, err := d.Activity()
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		rec, err := s.repo.Create(r.Context(), a)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to create activity: %v", err))
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, rec)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		a, err := s.repo.Get(ctx, id)
		if err != nil {
			s.writeRepoError(w, "get", id, err)
			return
		}
		httputil.WriteJSONOK(w, a)
	case http.MethodPut, http.MethodPatch:
		var p activity.Patch
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if p.Empty() {
			httputil.BadRequest(w, "no fields to update")
			return
		}
		cur, err := s.repo.Get(ctx, id)
		if err != nil {
			s.writeRepoError(w, "get", id, err)
			return
		}
		if _, err := p.Apply(cur); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		a, err := s.repo.Update(ctx, id, p)
		if err != nil {
			s.writeRepoError(w, "update", id, err)
			return
		}
		httputil.WriteJSONOK(w, a)
	case http.MethodDelete:
		if err := s.repo.Delete(ctx, id); err != nil {
			s.writeRepoError(w, "delete", id, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) writeRepoError(w http.ResponseWriter, op, id string, err error) {
	if errors.Is(err, activity.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("activity %s not found", id))
		return
	}
	httputil.InternalServerError(w, fmt.Sprintf("Failed to %s activity: %v", op, err))
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = units.KM
	}
	if !units.IsValid(unit) {
		httputil.BadRequest(w, fmt.Sprintf("Invalid 'units' parameter. Must be one of: %s", units.GetValidUnitsString()))
		return
	}
	acts, err := s.repo.List(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list activities: %v", err))
		return
	}
	today := s.dayLabel(s.clock.Now())
	stats := activity.Summarize(acts, today, s.cfg.GetDailyStepGoal())
	httputil.WriteJSONOK(w, statsResponse{
		Stats:         stats,
		Units:         unit,
		TotalDistance: units.ConvertDistance(stats.TotalDistanceKm, unit),
	})
}

// statsResponse adds the total distance in the requested units.
type statsResponse struct {
	activity.Stats
	Units         string  `json:"units"`
	TotalDistance float64 `json:"total_distance"`
}
