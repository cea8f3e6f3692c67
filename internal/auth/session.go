// Package auth provides session authentication and passkey login.
package auth

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	sessionExpiry = 30 * 24 * time.Hour // 30 days
	cookieName    = "onsight_session"
)

// SessionStore manages sessions in SQLite.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create generates a new session for the given user and sets the cookie.
func (s *SessionStore) Create(w http.ResponseWriter, userID int64) error {
	id := uuid.NewString()
	expiresAt := time.Now().Add(sessionExpiry)

	if _, err := s.db.Exec(
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		id, userID, expiresAt,
	); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Validate checks the session cookie and returns the user ID if valid.
func (s *SessionStore) Validate(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return 0, fmt.Errorf("no session cookie")
	}

	var userID int64
	var expiresAt time.Time

	err = s.db.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE id = ?",
		cookie.Value,
	).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("invalid session")
	}
	if err != nil {
		return 0, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(expiresAt) {
		// Clean up expired session
		if _, delErr := s.db.Exec("DELETE FROM sessions WHERE id = ?", cookie.Value); delErr != nil {
			return 0, fmt.Errorf("deleting expired session: %w", delErr)
		}
		return 0, fmt.Errorf("session expired")
	}

	return userID, nil
}

// Destroy removes the session and clears the cookie.
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil // no session to destroy
	}

	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", cookie.Value); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Cleanup removes expired sessions.
func (s *SessionStore) Cleanup() error {
	if _, err := s.db.Exec(
		"DELETE FROM sessions WHERE expires_at < ?",
		time.Now(),
	); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}
