// Package client provides the client address book: the known locations
// that visits are matched against.
package client

import "time"

// Client is a customer location owned by a single user. Latitude and
// Longitude are set together by geocoding, or not at all.
type Client struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasCoordinates reports whether the client has a geocoded location.
func (c *Client) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}
