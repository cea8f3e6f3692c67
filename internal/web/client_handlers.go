package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"onsight/internal/auth"
	"onsight/internal/client"
)

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ownedClient loads a client and checks it belongs to the user. It
// writes the error response itself and returns nil on failure.
func (s *Server) ownedClient(w http.ResponseWriter, r *http.Request, userID int64) *client.Client {
	id, err := pathID(r)
	if err != nil {
		apiError(w, "invalid client ID", http.StatusBadRequest)
		return nil
	}

	c, err := s.clients.GetByID(id)
	if err != nil {
		slog.Error("loading client", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if c == nil {
		apiError(w, "client not found", http.StatusNotFound)
		return nil
	}
	if c.UserID != userID {
		apiError(w, "client belongs to another user", http.StatusForbidden)
		return nil
	}
	return c
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	clients, err := s.clients.ListByUserID(userID)
	if err != nil {
		slog.Error("listing clients", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if clients == nil {
		clients = []*client.Client{}
	}
	apiJSON(w, clients, http.StatusOK)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var c client.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c.UserID = userID

	created, err := s.clients.Create(&c)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}
	apiJSON(w, created, http.StatusCreated)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	c := s.ownedClient(w, r, userID)
	if c == nil {
		return
	}
	apiJSON(w, c, http.StatusOK)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	existing := s.ownedClient(w, r, userID)
	if existing == nil {
		return
	}

	var c client.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := s.clients.Update(existing.ID, &c)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}
	apiJSON(w, updated, http.StatusOK)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	existing := s.ownedClient(w, r, userID)
	if existing == nil {
		return
	}

	if err := s.clients.Delete(existing.ID); err != nil {
		slog.Error("deleting client", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	apiJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}
