package invoice

import (
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"onsight/internal/visit"
)

// Generator creates invoices. A visit-backed invoice and the visit's
// invoiced flag are written in one transaction, so callers never see a
// half-applied state.
type Generator struct {
	db   *sql.DB
	repo *Repository
	now  func() time.Time
}

// NewGenerator creates an invoice generator. now may be nil to use the
// wall clock.
func NewGenerator(db *sql.DB, repo *Repository, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{db: db, repo: repo, now: now}
}

// CreateRequest carries the invoice parameters. Either VisitID or
// ClientID must be present.
type CreateRequest struct {
	VisitID  *int64
	ClientID *int64
	Amount   decimal.Decimal
	Notes    string
	IsPaid   bool
}

// Create persists a new invoice for the user. When VisitID is set, the
// visit must belong to the user and not be invoiced yet; the visit's
// client overrides any caller-supplied ClientID, and the visit is marked
// invoiced in the same transaction. An ad hoc invoice requires a client
// owned by the user.
func (g *Generator) Create(userID int64, req CreateRequest) (inv *Invoice, err error) {
	if req.VisitID == nil && req.ClientID == nil {
		return nil, ErrInvalidRequest
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := g.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	clientID := req.ClientID
	if req.VisitID != nil {
		var (
			visitUserID   int64
			visitClientID *int64
			hasInvoice    bool
		)
		row := tx.QueryRow("SELECT user_id, client_id, has_invoice FROM visits WHERE id = ?", *req.VisitID)
		if err = row.Scan(&visitUserID, &visitClientID, &hasInvoice); err != nil {
			if err == sql.ErrNoRows {
				err = visit.ErrNotFound
			}
			return nil, err
		}
		if visitUserID != userID {
			err = visit.ErrForbidden
			return nil, err
		}
		if hasInvoice {
			err = ErrAlreadyInvoiced
			return nil, err
		}
		clientID = visitClientID
	} else {
		var ownerID int64
		row := tx.QueryRow("SELECT user_id FROM clients WHERE id = ?", *req.ClientID)
		if err = row.Scan(&ownerID); err != nil {
			if err == sql.ErrNoRows {
				err = visit.ErrNotFound
			}
			return nil, err
		}
		if ownerID != userID {
			err = visit.ErrForbidden
			return nil, err
		}
	}

	result, err := tx.Exec(
		`INSERT INTO invoices (user_id, client_id, visit_id, invoice_number, amount, date, is_paid, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, clientID, req.VisitID, g.number(), req.Amount.String(), g.now(), req.IsPaid, req.Notes,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			err = ErrAlreadyInvoiced
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	if req.VisitID != nil {
		var marked sql.Result
		marked, err = tx.Exec(
			"UPDATE visits SET has_invoice = 1 WHERE id = ? AND has_invoice = 0", *req.VisitID,
		)
		if err != nil {
			return nil, fmt.Errorf("marking visit invoiced: %w", err)
		}
		var rows int64
		if rows, err = marked.RowsAffected(); err != nil {
			return nil, fmt.Errorf("checking rows affected: %w", err)
		}
		if rows == 0 {
			err = ErrAlreadyInvoiced
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing invoice: %w", err)
	}

	return g.repo.GetByID(id)
}

// number generates an invoice number like INV-2026-417. The random
// suffix makes collisions possible but rare; numbers are labels, not
// keys.
func (g *Generator) number() string {
	return fmt.Sprintf("INV-%d-%d", g.now().Year(), 100+rand.IntN(900))
}
