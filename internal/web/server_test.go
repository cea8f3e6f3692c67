package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"onsight/internal/config"
	"onsight/internal/db"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	// Stub geocoder so visit creation never leaves the test process.
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "77 Geocoded Ln"}`))
	}))
	t.Cleanup(geo.Close)

	cfg := config.Default()
	cfg.Geocoder.URL = geo.URL

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

	srv, err := NewServer(d, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	return &testServer{t: t, handler: srv.Router()}
}

// request performs one request against the router. body is JSON-encoded
// when non-nil; cookie may be nil for unauthenticated calls.
func (ts *testServer) request(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encoding body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

// register creates an account and returns its session cookie.
func (ts *testServer) register(username string) *http.Cookie {
	ts.t.Helper()

	w := ts.request("POST", "/api/register", map[string]any{
		"username":     username,
		"password":     "hunter2!",
		"businessType": "Service Provider",
	}, nil)
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("register: status %d, body %s", w.Code, w.Body.String())
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == "onsight_session" {
			return c
		}
	}
	ts.t.Fatal("register set no session cookie")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %s)", err, w.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request("GET", "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register("alice")

	w := ts.request("GET", "/api/user", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("get user: status %d", w.Code)
	}
	u := decode[map[string]any](t, w)
	if u["username"] != "alice" {
		t.Errorf("username = %v", u["username"])
	}
	if _, ok := u["password"]; ok {
		t.Error("password leaked in response")
	}

	// Duplicate username.
	w = ts.request("POST", "/api/register", map[string]any{
		"username": "alice", "password": "other",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want 409", w.Code)
	}

	// Wrong password.
	w = ts.request("POST", "/api/login", map[string]any{
		"username": "alice", "password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login: status = %d, want 401", w.Code)
	}

	// Correct password.
	w = ts.request("POST", "/api/login", map[string]any{
		"username": "alice", "password": "hunter2!",
	}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("login: status = %d, want 200", w.Code)
	}

	// Logout invalidates the session.
	w = ts.request("POST", "/api/logout", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}
	w = ts.request("GET", "/api/user", nil, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401", w.Code)
	}
}

func TestRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/user", "/api/clients", "/api/visits/current", "/api/invoices"} {
		w := ts.request("GET", path, nil, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, w.Code)
		}
	}
}

func TestUpdateBusinessHours(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register("alice")

	w := ts.request("PUT", "/api/user", map[string]any{
		"businessHours": map[string]any{
			"days":      []string{"mon", "wed"},
			"startTime": "08:00",
			"endTime":   "17:00",
		},
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", w.Code, w.Body.String())
	}

	u := decode[map[string]any](t, w)
	hours, _ := u["businessHours"].(string)
	if hours == "" || hours == "{}" {
		t.Errorf("businessHours = %q, want stored schedule", hours)
	}

	w = ts.request("PUT", "/api/user", map[string]any{}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty update: status = %d, want 400", w.Code)
	}
}
