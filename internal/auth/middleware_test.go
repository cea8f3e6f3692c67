package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAuth(t *testing.T) {
	d := openTestDB(t)
	store := NewSessionStore(d)
	userID := insertUser(t, d, "alice")

	var gotUserID int64
	handler := RequireAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			t.Error("no user ID in context")
		}
		gotUserID = id
	}))

	// Unauthenticated request.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/visits", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	// Authenticated request.
	created := httptest.NewRecorder()
	if err := store.Create(created, userID); err != nil {
		t.Fatalf("create session: %v", err)
	}
	r := httptest.NewRequest("GET", "/api/visits", nil)
	r.AddCookie(sessionCookie(t, created))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if gotUserID != userID {
		t.Errorf("context userID = %d, want %d", gotUserID, userID)
	}
}

func TestUserIDMissing(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := UserID(r.Context()); ok {
		t.Error("expected no user ID in a bare context")
	}
}
