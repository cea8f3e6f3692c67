package visit

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository provides persistence for visits.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a visit repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const visitColumns = "id, user_id, client_id, address, start_time, end_time, duration, " +
	"latitude, longitude, is_known_location, has_invoice, service_type, service_details, billable_amount"

func scanVisit(row interface{ Scan(...any) error }) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.UserID, &v.ClientID, &v.Address, &v.StartTime, &v.EndTime, &v.Duration,
		&v.Latitude, &v.Longitude, &v.IsKnownLocation, &v.HasInvoice,
		&v.ServiceType, &v.ServiceDetails, &v.BillableAmount,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Insert stores a new open visit. A unique partial index on
// visits(user_id) WHERE end_time IS NULL backs the one-open-visit
// invariant; a violation surfaces as ErrVisitOpen.
func (r *Repository) Insert(v *Visit) (*Visit, error) {
	result, err := r.db.Exec(
		`INSERT INTO visits (user_id, client_id, address, start_time, latitude, longitude,
			is_known_location, service_type, service_details, billable_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.UserID, v.ClientID, v.Address, v.StartTime, v.Latitude, v.Longitude,
		v.IsKnownLocation, v.ServiceType, v.ServiceDetails, v.BillableAmount,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrVisitOpen
		}
		return nil, fmt.Errorf("inserting visit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns a visit by ID, or nil if none exists.
func (r *Repository) GetByID(id int64) (*Visit, error) {
	v, err := scanVisit(r.db.QueryRow(
		"SELECT "+visitColumns+" FROM visits WHERE id = ?", id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying visit: %w", err)
	}
	return v, nil
}

// Close sets the end time and duration on an open visit. It refuses to
// touch a visit that is already closed.
func (r *Repository) Close(id int64, endTime time.Time, durationMinutes int64) (*Visit, error) {
	result, err := r.db.Exec(
		"UPDATE visits SET end_time = ?, duration = ? WHERE id = ? AND end_time IS NULL",
		endTime, durationMinutes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("closing visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrAlreadyEnded
	}

	return r.GetByID(id)
}

// CurrentOpen returns the user's open visit, or nil.
func (r *Repository) CurrentOpen(userID int64) (*Visit, error) {
	v, err := scanVisit(r.db.QueryRow(
		"SELECT "+visitColumns+" FROM visits WHERE user_id = ? AND end_time IS NULL", userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying open visit: %w", err)
	}
	return v, nil
}

// ListByUserID returns all visits for a user, oldest first.
func (r *Repository) ListByUserID(userID int64) ([]*Visit, error) {
	return r.list("SELECT "+visitColumns+" FROM visits WHERE user_id = ? ORDER BY id", userID)
}

// ListByClientID returns all visits to a client, oldest first.
func (r *Repository) ListByClientID(clientID int64) ([]*Visit, error) {
	return r.list("SELECT "+visitColumns+" FROM visits WHERE client_id = ? ORDER BY id", clientID)
}

// ListByDate returns a user's visits that started on the given calendar
// day (in day's location).
func (r *Repository) ListByDate(userID int64, day time.Time) ([]*Visit, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	return r.list(
		"SELECT "+visitColumns+" FROM visits WHERE user_id = ? AND start_time >= ? AND start_time < ? ORDER BY id",
		userID, start, end,
	)
}

// Uninvoiced returns the user's closed visits without an invoice,
// ordered by ascending id.
func (r *Repository) Uninvoiced(userID int64) ([]*Visit, error) {
	return r.list(
		"SELECT "+visitColumns+" FROM visits WHERE user_id = ? AND end_time IS NOT NULL AND has_invoice = 0 ORDER BY id",
		userID,
	)
}

func (r *Repository) list(query string, args ...any) ([]*Visit, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}

	return visits, nil
}
