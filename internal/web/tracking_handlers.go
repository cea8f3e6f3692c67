package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"onsight/internal/auth"
	"onsight/internal/schedule"
	"onsight/internal/tracking"
	"onsight/internal/visit"
)

// tracker returns the user's tracking controller, creating one from the
// stored business hours on first use.
func (s *Server) tracker(userID int64) (*tracking.Controller, error) {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()

	if ctrl, ok := s.trackers[userID]; ok {
		return ctrl, nil
	}

	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	ctrl := tracking.NewController(
		s.visits, userID, schedule.Parse(u.BusinessHours), time.Duration(s.cfg.Tracking.TickInterval), nil,
	)
	// Keep evaluating between samples so the end-of-day signal fires
	// even when no more locations arrive. One loop per user, for the
	// life of the process.
	go ctrl.Run(context.Background())
	s.trackers[userID] = ctrl
	return ctrl, nil
}

// handleTrackingSample feeds a geolocation sample into the user's
// tracking controller. Auto check-in happens inside the controller.
func (s *Server) handleTrackingSample(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var sample tracking.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctrl, err := s.tracker(userID)
	if err != nil {
		slog.Error("creating tracking controller", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	ctrl.Observe(r.Context(), sample)

	apiJSON(w, map[string]string{"status": "accepted"}, http.StatusAccepted)
}

// handleEndOfDay drains the end-of-day signal: the day's closed,
// uninvoiced visits once business hours end. 204 means no signal yet.
func (s *Server) handleEndOfDay(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	ctrl, err := s.tracker(userID)
	if err != nil {
		slog.Error("creating tracking controller", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	select {
	case visits := <-ctrl.EndOfDay():
		if visits == nil {
			visits = []*visit.Visit{}
		}
		apiJSON(w, visits, http.StatusOK)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
