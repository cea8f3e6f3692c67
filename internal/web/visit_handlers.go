package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"onsight/internal/auth"
	"onsight/internal/visit"
)

// handleListVisits lists the user's visits, optionally filtered by
// ?date=YYYY-MM-DD or ?clientId=N.
func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var (
		visits []*visit.Visit
		err    error
	)
	switch {
	case r.URL.Query().Get("date") != "":
		var day time.Time
		day, err = time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			apiError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		visits, err = s.visits.VisitsOnDate(userID, day)
	case r.URL.Query().Get("clientId") != "":
		var clientID int64
		clientID, err = strconv.ParseInt(r.URL.Query().Get("clientId"), 10, 64)
		if err != nil {
			apiError(w, "invalid clientId", http.StatusBadRequest)
			return
		}
		visits, err = s.visits.VisitsForClient(userID, clientID)
	default:
		visits, err = s.visits.Visits(userID)
	}
	if err != nil {
		serviceError(w, err)
		return
	}

	if visits == nil {
		visits = []*visit.Visit{}
	}
	apiJSON(w, visits, http.StatusOK)
}

// handleStartVisit checks the user in.
func (s *Server) handleStartVisit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req visit.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	v, err := s.visits.StartVisit(r.Context(), userID, req)
	if err != nil {
		serviceError(w, err)
		return
	}
	apiJSON(w, v, http.StatusCreated)
}

// handleEndVisit checks the user out of a visit.
func (s *Server) handleEndVisit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	id, err := pathID(r)
	if err != nil {
		apiError(w, "invalid visit ID", http.StatusBadRequest)
		return
	}

	v, err := s.visits.EndVisit(id, userID)
	if err != nil {
		serviceError(w, err)
		return
	}
	apiJSON(w, v, http.StatusOK)
}

// handleCurrentVisit returns the open visit, or 404 when there is none.
func (s *Server) handleCurrentVisit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	v, err := s.visits.CurrentOpenVisit(userID)
	if err != nil {
		slog.Error("loading open visit", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if v == nil {
		apiError(w, "no open visit", http.StatusNotFound)
		return
	}
	apiJSON(w, v, http.StatusOK)
}

// handleUninvoicedVisits lists closed visits awaiting an invoice.
func (s *Server) handleUninvoicedVisits(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	visits, err := s.visits.UninvoicedVisits(userID)
	if err != nil {
		slog.Error("listing uninvoiced visits", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if visits == nil {
		visits = []*visit.Visit{}
	}
	apiJSON(w, visits, http.StatusOK)
}
