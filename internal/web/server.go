// Package web provides the JSON HTTP API.
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/shopspring/decimal"

	"onsight/internal/auth"
	"onsight/internal/client"
	"onsight/internal/config"
	"onsight/internal/geocode"
	"onsight/internal/invoice"
	"onsight/internal/logging"
	"onsight/internal/tracking"
	"onsight/internal/user"
	"onsight/internal/visit"
)

// Server is the API HTTP server.
type Server struct {
	cfg        *config.Config
	users      *user.Repository
	clients    *client.Repository
	visits     *visit.Service
	invoices   *invoice.Repository
	generator  *invoice.Generator
	sessions   *auth.SessionStore
	passkeys   *auth.PasskeyStore
	wan        *webauthn.WebAuthn
	hourlyRate decimal.Decimal

	// One tracking controller per user, created on the first sample.
	trackMu  sync.Mutex
	trackers map[int64]*tracking.Controller

	// In-memory state for in-flight WebAuthn ceremonies. Login supports a
	// single concurrent ceremony, which is fine for a single-device flow.
	pkMu         sync.Mutex
	regSessions  map[int64]*webauthn.SessionData
	loginSession *webauthn.SessionData
}

// NewServer wires the repositories and services onto a database handle.
func NewServer(db *sql.DB, cfg *config.Config) (*Server, error) {
	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.Passkey.RPName,
		RPID:          cfg.Passkey.RPID,
		RPOrigins:     []string{cfg.Passkey.RPOrigin},
	})
	if err != nil {
		return nil, fmt.Errorf("configuring webauthn: %w", err)
	}

	clients := client.NewRepository(db)
	geocoder := geocode.NewClient(cfg.Geocoder.URL, time.Duration(cfg.Geocoder.Timeout))
	visits := visit.NewService(visit.NewRepository(db), clients, geocoder, cfg.Tracking.MatchRadiusKm, nil)
	invoices := invoice.NewRepository(db)

	return &Server{
		cfg:         cfg,
		users:       user.NewRepository(db),
		clients:     clients,
		visits:      visits,
		invoices:    invoices,
		generator:   invoice.NewGenerator(db, invoices, nil),
		sessions:    auth.NewSessionStore(db),
		passkeys:    auth.NewPasskeyStore(db),
		wan:         wan,
		hourlyRate:  decimal.NewFromFloat(cfg.Tracking.HourlyRate),
		trackers:    make(map[int64]*tracking.Controller),
		regSessions: make(map[int64]*webauthn.SessionData),
	}, nil
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		// Public: registration and both login flows.
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/passkey/login/begin", s.handlePasskeyLoginBegin)
		r.Post("/passkey/login/finish", s.handlePasskeyLoginFinish)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.sessions))

			r.Get("/user", s.handleGetUser)
			r.Put("/user", s.handleUpdateUser)

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", s.handleListClients)
				r.Post("/", s.handleCreateClient)
				r.Get("/{id}", s.handleGetClient)
				r.Put("/{id}", s.handleUpdateClient)
				r.Delete("/{id}", s.handleDeleteClient)
			})

			r.Route("/visits", func(r chi.Router) {
				r.Get("/", s.handleListVisits)
				r.Post("/start", s.handleStartVisit)
				r.Get("/current", s.handleCurrentVisit)
				r.Get("/uninvoiced", s.handleUninvoicedVisits)
				r.Post("/{id}/end", s.handleEndVisit)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", s.handleListInvoices)
				r.Post("/", s.handleCreateInvoice)
				r.Get("/{id}", s.handleGetInvoice)
				r.Put("/{id}", s.handleUpdateInvoice)
			})

			r.Route("/tracking", func(r chi.Router) {
				r.Post("/sample", s.handleTrackingSample)
				r.Get("/end-of-day", s.handleEndOfDay)
			})

			r.Post("/passkey/register/begin", s.handlePasskeyRegisterBegin)
			r.Post("/passkey/register/finish", s.handlePasskeyRegisterFinish)
			r.Get("/passkeys", s.handleListPasskeys)
			r.Delete("/passkeys/{id}", s.handleDeletePasskey)
		})
	})

	return r
}

// ListenAndServe starts the HTTP server on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	return http.ListenAndServe(addr, s.Router())
}

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// serviceError maps the domain sentinel errors to HTTP responses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, visit.ErrNotFound), errors.Is(err, invoice.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, visit.ErrForbidden):
		apiError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, visit.ErrVisitOpen),
		errors.Is(err, visit.ErrAlreadyEnded),
		errors.Is(err, invoice.ErrAlreadyInvoiced):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, visit.ErrInvalidLocation),
		errors.Is(err, invoice.ErrInvalidRequest),
		errors.Is(err, invoice.ErrInvalidAmount):
		apiError(w, err.Error(), http.StatusBadRequest)
	default:
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}
