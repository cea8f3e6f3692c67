// Package invoice turns closed visits (or ad hoc client charges) into
// invoice records.
package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"onsight/internal/visit"
)

// Sentinel errors returned by invoice creation.
var (
	ErrInvalidRequest  = errors.New("a visit or a client is required")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrAlreadyInvoiced = errors.New("visit already has an invoice")
	ErrNotFound        = errors.New("invoice not found")
)

// DefaultHourlyRate is used when no rate is configured.
const DefaultHourlyRate = 60

// Invoice is a billing record, optionally tied to the visit it bills.
type Invoice struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	ClientID      *int64          `json:"clientId"`
	VisitID       *int64          `json:"visitId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	IsPaid        bool            `json:"isPaid"`
	Notes         string          `json:"notes"`
}

// DeriveAmount computes the billing amount for a closed visit: the
// visit's own billable amount when set, otherwise hours worked times the
// hourly rate. An open visit bills zero hours.
func DeriveAmount(v *visit.Visit, hourlyRate decimal.Decimal) decimal.Decimal {
	if v.BillableAmount != nil {
		return decimal.NewFromFloat(*v.BillableAmount)
	}

	var minutes int64
	if v.Duration != nil {
		minutes = *v.Duration
	}
	return decimal.NewFromInt(minutes).
		Div(decimal.NewFromInt(60)).
		Mul(hourlyRate)
}
