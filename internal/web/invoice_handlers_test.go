package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"onsight/internal/invoice"
)

func (ts *testServer) closedVisitID(cookie *http.Cookie) int64 {
	ts.t.Helper()
	v := ts.startVisit(cookie, map[string]any{"latitude": 40.0, "longitude": -73.0})
	w := ts.request("POST", fmt.Sprintf("/api/visits/%d/end", v.ID), nil, cookie)
	if w.Code != http.StatusOK {
		ts.t.Fatalf("end visit: status %d", w.Code)
	}
	return v.ID
}

func TestInvoiceFromVisit(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register("alice")
	visitID := ts.closedVisitID(cookie)

	w := ts.request("POST", "/api/invoices", map[string]any{
		"visitId": visitID,
		"amount":  120.50,
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	inv := decode[invoice.Invoice](t, w)
	if inv.VisitID == nil || *inv.VisitID != visitID {
		t.Errorf("visitId = %v, want %d", inv.VisitID, visitID)
	}
	if !inv.Amount.Equal(decimal.RequireFromString("120.5")) {
		t.Errorf("amount = %s", inv.Amount)
	}

	// Second invoice for the same visit conflicts.
	w = ts.request("POST", "/api/invoices", map[string]any{
		"visitId": visitID,
		"amount":  120.50,
	}, cookie)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", w.Code)
	}
}

func TestInvoiceDerivedAmount(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register("alice")
	visitID := ts.closedVisitID(cookie)

	// Omitted amount derives from the visit. A freshly closed visit has
	// duration 0, so derivation yields 0 and creation fails validation —
	// unless the visit carried its own billable amount.
	w := ts.request("POST", "/api/invoices", map[string]any{"visitId": visitID}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero-duration derive: status = %d, want 400", w.Code)
	}

	v := ts.startVisit(cookie, map[string]any{
		"latitude": 40.0, "longitude": -73.0, "billableAmount": 250.0,
	})
	resp := ts.request("POST", fmt.Sprintf("/api/visits/%d/end", v.ID), nil, cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("end visit: status %d", resp.Code)
	}

	w = ts.request("POST", "/api/invoices", map[string]any{"visitId": v.ID}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("derived create: status %d, body %s", w.Code, w.Body.String())
	}
	inv := decode[invoice.Invoice](t, w)
	if !inv.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("amount = %s, want the visit's billable 250", inv.Amount)
	}
}

func TestInvoiceAdHoc(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register("alice")
	c := ts.createClient(cookie, "Acme Plumbing")

	w := ts.request("POST", "/api/invoices", map[string]any{
		"clientId": c.ID,
		"amount":   99.99,
		"notes":    "parts",
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	inv := decode[invoice.Invoice](t, w)
	if inv.VisitID != nil {
		t.Errorf("visitId = %v, want nil", inv.VisitID)
	}
	if inv.ClientID == nil || *inv.ClientID != c.ID {
		t.Errorf("clientId = %v, want %d", inv.ClientID, c.ID)
	}

	// Neither visit nor client.
	w = ts.request("POST", "/api/invoices", map[string]any{"amount": 10}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty target: status = %d, want 400", w.Code)
	}
}

func TestInvoiceGetUpdateList(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register("alice")
	c := ts.createClient(cookie, "Acme Plumbing")

	w := ts.request("POST", "/api/invoices", map[string]any{"clientId": c.ID, "amount": 50}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d", w.Code)
	}
	inv := decode[invoice.Invoice](t, w)

	w = ts.request("GET", fmt.Sprintf("/api/invoices/%d", inv.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Errorf("get: status %d", w.Code)
	}

	w = ts.request("PUT", fmt.Sprintf("/api/invoices/%d", inv.ID), map[string]any{
		"isPaid": true,
		"notes":  "paid by card",
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d", w.Code)
	}
	updated := decode[invoice.Invoice](t, w)
	if !updated.IsPaid || updated.Notes != "paid by card" {
		t.Errorf("updated = %+v", updated)
	}

	w = ts.request("GET", fmt.Sprintf("/api/invoices?clientId=%d", c.ID), nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("list by client: status %d", w.Code)
	}
	list := decode[[]invoice.Invoice](t, w)
	if len(list) != 1 {
		t.Errorf("list = %d invoices, want 1", len(list))
	}

	// Other users cannot see it.
	bob := ts.register("bob")
	w = ts.request("GET", fmt.Sprintf("/api/invoices/%d", inv.ID), nil, bob)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign get: status = %d, want 403", w.Code)
	}
	w = ts.request("GET", "/api/invoices/9999", nil, bob)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing get: status = %d, want 404", w.Code)
	}
}
