package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"onsight/internal/auth"
	"onsight/internal/schedule"
	"onsight/internal/user"
)

type registerRequest struct {
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	BusinessType  string          `json:"businessType"`
	BusinessHours *schedule.Hours `json:"businessHours"`
}

// handleRegister creates an account and logs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		apiError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	hashed, err := user.HashPassword(req.Password)
	if err != nil {
		slog.Error("hashing password", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	hours := "{}"
	if req.BusinessHours != nil {
		data, err := json.Marshal(req.BusinessHours)
		if err != nil {
			apiError(w, "invalid business hours", http.StatusBadRequest)
			return
		}
		hours = string(data)
	}

	u, err := s.users.Create(req.Username, hashed, req.BusinessType, hours)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			apiError(w, "username already taken", http.StatusConflict)
			return
		}
		slog.Error("creating user", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.sessions.Create(w, u.ID); err != nil {
		slog.Error("creating session", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "user_id", u.ID, "username", u.Username)
	apiJSON(w, u, http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin checks credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := s.users.GetByUsername(req.Username)
	if err != nil {
		slog.Error("looking up user", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if u == nil || !user.CheckPassword(req.Password, u.Password) {
		apiError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	if err := s.sessions.Create(w, u.ID); err != nil {
		slog.Error("creating session", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("login success", "user_id", u.ID, "method", "password")
	apiJSON(w, u, http.StatusOK)
}

// handleLogout destroys the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		slog.Error("destroying session", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleGetUser returns the authenticated account.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	u, err := s.users.GetByID(userID)
	if err != nil {
		apiError(w, "user not found", http.StatusNotFound)
		return
	}
	apiJSON(w, u, http.StatusOK)
}

type updateUserRequest struct {
	BusinessHours *schedule.Hours `json:"businessHours"`
}

// handleUpdateUser replaces the account's business hours. A running
// tracking controller picks the new schedule up immediately.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BusinessHours == nil {
		apiError(w, "businessHours is required", http.StatusBadRequest)
		return
	}

	data, err := json.Marshal(req.BusinessHours)
	if err != nil {
		apiError(w, "invalid business hours", http.StatusBadRequest)
		return
	}

	if err := s.users.UpdateBusinessHours(userID, string(data)); err != nil {
		slog.Error("updating business hours", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.trackMu.Lock()
	if ctrl, ok := s.trackers[userID]; ok {
		ctrl.SetHours(req.BusinessHours)
	}
	s.trackMu.Unlock()

	u, err := s.users.GetByID(userID)
	if err != nil {
		apiError(w, "user not found", http.StatusNotFound)
		return
	}
	apiJSON(w, u, http.StatusOK)
}
