package web

import (
	"encoding/binary"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"onsight/internal/auth"
)

// handlePasskeyRegisterBegin starts passkey registration for the logged
// in account.
func (s *Server) handlePasskeyRegisterBegin(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	u, err := s.users.GetByID(userID)
	if err != nil {
		apiError(w, "user not found", http.StatusNotFound)
		return
	}

	creds, err := s.passkeys.WebAuthnCredentials(userID)
	if err != nil {
		slog.Error("loading credentials", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Exclude existing credentials so the same key is not re-registered.
	excludeList := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		excludeList[i] = c.Descriptor()
	}

	creation, session, err := s.wan.BeginRegistration(
		auth.NewPasskeyUser(u, creds),
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		slog.Error("beginning passkey registration", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.pkMu.Lock()
	s.regSessions[userID] = session
	s.pkMu.Unlock()

	apiJSON(w, creation, http.StatusOK)
}

// handlePasskeyRegisterFinish completes passkey registration.
func (s *Server) handlePasskeyRegisterFinish(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	s.pkMu.Lock()
	session, ok := s.regSessions[userID]
	if ok {
		delete(s.regSessions, userID)
	}
	s.pkMu.Unlock()

	if !ok {
		apiError(w, "no registration in progress", http.StatusBadRequest)
		return
	}

	u, err := s.users.GetByID(userID)
	if err != nil {
		apiError(w, "user not found", http.StatusNotFound)
		return
	}

	creds, err := s.passkeys.WebAuthnCredentials(userID)
	if err != nil {
		slog.Error("loading credentials", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	credential, err := s.wan.FinishRegistration(auth.NewPasskeyUser(u, creds), *session, r)
	if err != nil {
		slog.Error("finishing passkey registration", "error", err)
		apiError(w, "registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}

	if err := s.passkeys.Save(userID, name, credential); err != nil {
		slog.Error("saving credential", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handlePasskeyLoginBegin starts a discoverable passkey login.
func (s *Server) handlePasskeyLoginBegin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := s.wan.BeginDiscoverableLogin()
	if err != nil {
		slog.Error("beginning passkey login", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.pkMu.Lock()
	s.loginSession = session
	s.pkMu.Unlock()

	apiJSON(w, assertion, http.StatusOK)
}

// handlePasskeyLoginFinish completes passkey login and creates a session.
func (s *Server) handlePasskeyLoginFinish(w http.ResponseWriter, r *http.Request) {
	s.pkMu.Lock()
	session := s.loginSession
	s.loginSession = nil
	s.pkMu.Unlock()

	if session == nil {
		apiError(w, "no login in progress", http.StatusBadRequest)
		return
	}

	var loggedInUserID int64

	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		// The user handle is the big-endian account ID.
		if len(userHandle) != 8 {
			return nil, protocol.ErrBadRequest.WithDetails("bad user handle")
		}
		userID := int64(binary.BigEndian.Uint64(userHandle))

		u, err := s.users.GetByID(userID)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		creds, err := s.passkeys.WebAuthnCredentials(userID)
		if err != nil {
			return nil, err
		}

		loggedInUserID = userID
		return auth.NewPasskeyUser(u, creds), nil
	}

	_, _, err := s.wan.FinishPasskeyLogin(handler, *session, r)
	if err != nil {
		slog.Error("finishing passkey login", "error", err)
		apiError(w, "login failed", http.StatusUnauthorized)
		return
	}

	if err := s.sessions.Create(w, loggedInUserID); err != nil {
		slog.Error("creating session", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("login success", "user_id", loggedInUserID, "method", "passkey")
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleListPasskeys lists the account's registered passkeys.
func (s *Server) handleListPasskeys(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	stored, err := s.passkeys.ListByUserID(userID)
	if err != nil {
		slog.Error("listing passkeys", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	type passkeyInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	result := make([]passkeyInfo, len(stored))
	for i, sc := range stored {
		result[i] = passkeyInfo{ID: sc.ID, Name: sc.Name}
	}
	apiJSON(w, result, http.StatusOK)
}

// handleDeletePasskey removes one of the account's passkeys.
func (s *Server) handleDeletePasskey(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := s.passkeys.Delete(chi.URLParam(r, "id"), userID); err != nil {
		apiError(w, "passkey not found", http.StatusNotFound)
		return
	}
	apiJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}
