package user

import (
	"database/sql"
	"fmt"
	"strings"
)

// Repository provides CRUD operations for users.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a user repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = "id, username, password, business_type, business_hours, created_at"

// Create stores a new user. Password must already be hashed.
func (r *Repository) Create(username, hashedPassword, businessType, businessHours string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	result, err := r.db.Exec(
		"INSERT INTO users (username, password, business_type, business_hours) VALUES (?, ?, ?, ?)",
		username, hashedPassword, businessType, businessHours,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("username already exists: %s", username)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(id int64) (*User, error) {
	var u User
	err := r.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Username, &u.Password, &u.BusinessType, &u.BusinessHours, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// GetByUsername returns a user by username, or nil if none exists.
func (r *Repository) GetByUsername(username string) (*User, error) {
	var u User
	err := r.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE username = ?", strings.TrimSpace(username),
	).Scan(&u.ID, &u.Username, &u.Password, &u.BusinessType, &u.BusinessHours, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// UpdateBusinessHours replaces the stored business-hours JSON for a user.
func (r *Repository) UpdateBusinessHours(id int64, businessHours string) error {
	result, err := r.db.Exec(
		"UPDATE users SET business_hours = ? WHERE id = ?", businessHours, id,
	)
	if err != nil {
		return fmt.Errorf("updating business hours: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
