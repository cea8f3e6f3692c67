package client

import (
	"database/sql"
	"fmt"
	"strings"
)

// Repository provides CRUD operations for clients.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a client repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const clientColumns = "id, user_id, name, address, latitude, longitude, notes, created_at"

// Create stores a new client for a user.
func (r *Repository) Create(c *Client) (*Client, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		return nil, fmt.Errorf("address is required")
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude must be set together")
	}

	result, err := r.db.Exec(
		"INSERT INTO clients (user_id, name, address, latitude, longitude, notes) VALUES (?, ?, ?, ?, ?, ?)",
		c.UserID, strings.TrimSpace(c.Name), strings.TrimSpace(c.Address), c.Latitude, c.Longitude, c.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns a client by ID, or nil if none exists.
func (r *Repository) GetByID(id int64) (*Client, error) {
	var c Client
	err := r.db.QueryRow(
		"SELECT "+clientColumns+" FROM clients WHERE id = ?", id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Address, &c.Latitude, &c.Longitude, &c.Notes, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying client: %w", err)
	}
	return &c, nil
}

// ListByUserID returns all clients for a user, ordered by name.
func (r *Repository) ListByUserID(userID int64) ([]*Client, error) {
	rows, err := r.db.Query(
		"SELECT "+clientColumns+" FROM clients WHERE user_id = ? ORDER BY name, id", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var clients []*Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Address, &c.Latitude, &c.Longitude, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}
		clients = append(clients, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clients: %w", err)
	}

	return clients, nil
}

// Update replaces a client's mutable fields.
func (r *Repository) Update(id int64, c *Client) (*Client, error) {
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude must be set together")
	}

	result, err := r.db.Exec(
		"UPDATE clients SET name = ?, address = ?, latitude = ?, longitude = ?, notes = ? WHERE id = ?",
		c.Name, c.Address, c.Latitude, c.Longitude, c.Notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("client %d not found", id)
	}

	return r.GetByID(id)
}

// Delete removes a client by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("client %d not found", id)
	}

	return nil
}
