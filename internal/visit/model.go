// Package visit provides the visit lifecycle: check-in, check-out, and
// the queries that feed billing.
package visit

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the lifecycle operations. The HTTP layer
// maps these to status codes with errors.Is.
var (
	ErrInvalidLocation = errors.New("latitude and longitude are required")
	ErrVisitOpen       = errors.New("user already has an open visit")
	ErrNotFound        = errors.New("visit not found")
	ErrForbidden       = errors.New("visit belongs to another user")
	ErrAlreadyEnded    = errors.New("visit already ended")
)

// Visit is a time-bounded presence record at a location, optionally
// linked to a client. EndTime and Duration are nil while the visit is
// open; Duration is whole minutes once closed.
type Visit struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	ClientID        *int64     `json:"clientId"`
	Address         string     `json:"address"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	Duration        *int64     `json:"duration"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	IsKnownLocation bool       `json:"isKnownLocation"`
	HasInvoice      bool       `json:"hasInvoice"`
	ServiceType     string     `json:"serviceType"`
	ServiceDetails  string     `json:"serviceDetails"`
	BillableAmount  *float64   `json:"billableAmount"`
}

// Open reports whether the visit has not been checked out yet.
func (v *Visit) Open() bool {
	return v.EndTime == nil
}

// FormatDuration renders minutes as a short human string, e.g. "1h 15m".
func FormatDuration(minutes int64) string {
	if minutes <= 0 {
		return "0m"
	}

	hours := minutes / 60
	mins := minutes % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
}
