package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"onsight/internal/auth"
	"onsight/internal/invoice"
)

type createInvoiceRequest struct {
	VisitID  *int64           `json:"visitId"`
	ClientID *int64           `json:"clientId"`
	Amount   *decimal.Decimal `json:"amount"`
	Notes    string           `json:"notes"`
	IsPaid   bool             `json:"isPaid"`
}

// handleCreateInvoice creates an invoice from a visit or ad hoc for a
// client. When the amount is omitted for a visit invoice, it is derived
// from the visit's billable amount or its duration at the hourly rate.
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount := decimal.Zero
	if req.Amount != nil {
		amount = *req.Amount
	} else if req.VisitID != nil {
		v, err := s.visits.Visit(*req.VisitID, userID)
		if err != nil {
			serviceError(w, err)
			return
		}
		amount = invoice.DeriveAmount(v, s.hourlyRate)
	}

	inv, err := s.generator.Create(userID, invoice.CreateRequest{
		VisitID:  req.VisitID,
		ClientID: req.ClientID,
		Amount:   amount,
		Notes:    req.Notes,
		IsPaid:   req.IsPaid,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	apiJSON(w, inv, http.StatusCreated)
}

// handleListInvoices lists the user's invoices, optionally filtered by
// ?clientId=N.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var (
		invoices []*invoice.Invoice
		err      error
	)
	if raw := r.URL.Query().Get("clientId"); raw != "" {
		var clientID int64
		clientID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apiError(w, "invalid clientId", http.StatusBadRequest)
			return
		}
		invoices, err = s.invoices.ListByClientID(clientID)
		// Guard against forged client IDs.
		if err == nil {
			owned := invoices[:0]
			for _, inv := range invoices {
				if inv.UserID == userID {
					owned = append(owned, inv)
				}
			}
			invoices = owned
		}
	} else {
		invoices, err = s.invoices.ListByUserID(userID)
	}
	if err != nil {
		slog.Error("listing invoices", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if invoices == nil {
		invoices = []*invoice.Invoice{}
	}
	apiJSON(w, invoices, http.StatusOK)
}

// ownedInvoice loads an invoice and checks it belongs to the user. It
// writes the error response itself and returns nil on failure.
func (s *Server) ownedInvoice(w http.ResponseWriter, r *http.Request, userID int64) *invoice.Invoice {
	id, err := pathID(r)
	if err != nil {
		apiError(w, "invalid invoice ID", http.StatusBadRequest)
		return nil
	}

	inv, err := s.invoices.GetByID(id)
	if err != nil {
		slog.Error("loading invoice", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if inv == nil {
		apiError(w, "invoice not found", http.StatusNotFound)
		return nil
	}
	if inv.UserID != userID {
		apiError(w, "invoice belongs to another user", http.StatusForbidden)
		return nil
	}
	return inv
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	inv := s.ownedInvoice(w, r, userID)
	if inv == nil {
		return
	}
	apiJSON(w, inv, http.StatusOK)
}

type updateInvoiceRequest struct {
	IsPaid bool   `json:"isPaid"`
	Notes  string `json:"notes"`
}

// handleUpdateInvoice toggles the paid flag and replaces the notes.
func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	existing := s.ownedInvoice(w, r, userID)
	if existing == nil {
		return
	}

	var req updateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := s.invoices.Update(existing.ID, req.IsPaid, req.Notes)
	if err != nil {
		serviceError(w, err)
		return
	}
	apiJSON(w, updated, http.StatusOK)
}
