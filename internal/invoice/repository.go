package invoice

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository provides persistence for invoices. Creation goes through
// the Generator, which owns the transactional visit marking.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an invoice repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const invoiceColumns = "id, user_id, client_id, visit_id, invoice_number, amount, date, is_paid, notes"

func scanInvoice(row interface{ Scan(...any) error }) (*Invoice, error) {
	var (
		inv    Invoice
		amount string
	)
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.ClientID, &inv.VisitID, &inv.InvoiceNumber,
		&amount, &inv.Date, &inv.IsPaid, &inv.Notes,
	)
	if err != nil {
		return nil, err
	}

	inv.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return &inv, nil
}

// GetByID returns an invoice by ID, or nil if none exists.
func (r *Repository) GetByID(id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying invoice: %w", err)
	}
	return inv, nil
}

// ListByUserID returns all invoices for a user, oldest first.
func (r *Repository) ListByUserID(userID int64) ([]*Invoice, error) {
	return r.list("SELECT "+invoiceColumns+" FROM invoices WHERE user_id = ? ORDER BY id", userID)
}

// ListByClientID returns all invoices billed to a client, oldest first.
func (r *Repository) ListByClientID(clientID int64) ([]*Invoice, error) {
	return r.list("SELECT "+invoiceColumns+" FROM invoices WHERE client_id = ? ORDER BY id", clientID)
}

// Update sets the paid flag and notes on an invoice.
func (r *Repository) Update(id int64, isPaid bool, notes string) (*Invoice, error) {
	result, err := r.db.Exec(
		"UPDATE invoices SET is_paid = ?, notes = ? WHERE id = ?",
		isPaid, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(id)
}

func (r *Repository) list(query string, args ...any) ([]*Invoice, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}
