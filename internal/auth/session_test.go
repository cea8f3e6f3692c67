package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"onsight/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return d
}

func insertUser(t *testing.T, d *sql.DB, username string) int64 {
	t.Helper()
	res, err := d.Exec(
		`INSERT INTO users (username, password, business_type, business_hours) VALUES (?, ?, ?, ?)`,
		username, "x", "Service Provider", "{}",
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSessionCreateAndValidate(t *testing.T) {
	d := openTestDB(t)
	store := NewSessionStore(d)
	userID := insertUser(t, d, "alice")

	w := httptest.NewRecorder()
	if err := store.Create(w, userID); err != nil {
		t.Fatalf("create: %v", err)
	}

	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)

	got, err := store.Validate(r)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != userID {
		t.Errorf("userID = %d, want %d", got, userID)
	}
}

func TestSessionValidateMissing(t *testing.T) {
	store := NewSessionStore(openTestDB(t))

	r := httptest.NewRequest("GET", "/", nil)
	if _, err := store.Validate(r); err == nil {
		t.Error("expected error without cookie")
	}

	r.AddCookie(&http.Cookie{Name: cookieName, Value: "bogus"})
	if _, err := store.Validate(r); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestSessionExpired(t *testing.T) {
	d := openTestDB(t)
	store := NewSessionStore(d)
	userID := insertUser(t, d, "alice")

	if _, err := d.Exec(
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		"stale", userID, time.Now().Add(-time.Hour),
	); err != nil {
		t.Fatalf("insert session: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "stale"})

	if _, err := store.Validate(r); err == nil {
		t.Error("expected error for expired session")
	}

	// The expired row is gone.
	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expired session still stored")
	}
}

func TestSessionDestroy(t *testing.T) {
	d := openTestDB(t)
	store := NewSessionStore(d)
	userID := insertUser(t, d, "alice")

	w := httptest.NewRecorder()
	if err := store.Create(w, userID); err != nil {
		t.Fatalf("create: %v", err)
	}
	cookie := sessionCookie(t, w)

	r := httptest.NewRequest("POST", "/api/logout", nil)
	r.AddCookie(cookie)

	w2 := httptest.NewRecorder()
	if err := store.Destroy(w2, r); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	if _, err := store.Validate(r); err == nil {
		t.Error("session should be invalid after destroy")
	}

	cleared := sessionCookie(t, w2)
	if cleared.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cleared.MaxAge)
	}

	// Destroy without a cookie is a no-op.
	if err := store.Destroy(httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil)); err != nil {
		t.Errorf("destroy without cookie: %v", err)
	}
}

func TestSessionCleanup(t *testing.T) {
	d := openTestDB(t)
	store := NewSessionStore(d)
	userID := insertUser(t, d, "alice")

	for id, exp := range map[string]time.Time{
		"stale": time.Now().Add(-time.Hour),
		"live":  time.Now().Add(time.Hour),
	} {
		if _, err := d.Exec("INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)", id, userID, exp); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}

	if err := store.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	var remaining string
	if err := d.QueryRow("SELECT id FROM sessions").Scan(&remaining); err != nil {
		t.Fatalf("query: %v", err)
	}
	if remaining != "live" {
		t.Errorf("remaining session = %q, want live", remaining)
	}
}
