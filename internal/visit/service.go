package visit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"onsight/internal/client"
	"onsight/internal/geo"
)

// Geocoder resolves coordinates to a human address. Implementations are
// best-effort: failures and timeouts degrade to an empty address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Service orchestrates the visit lifecycle. All operations for a given
// user are serialized; operations for different users run in parallel.
type Service struct {
	visits   *Repository
	clients  *client.Repository
	geocoder Geocoder
	radiusKm float64
	now      func() time.Time

	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

// NewService creates a visit service. geocoder may be nil (no address
// enrichment); radiusKm <= 0 falls back to the 100m default; now may be
// nil to use the wall clock.
func NewService(visits *Repository, clients *client.Repository, geocoder Geocoder, radiusKm float64, now func() time.Time) *Service {
	if radiusKm <= 0 {
		radiusKm = geo.DefaultRadiusKm
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		visits:   visits,
		clients:  clients,
		geocoder: geocoder,
		radiusKm: radiusKm,
		now:      now,
		users:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing operations for one user.
func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.users[userID]
	if !ok {
		m = &sync.Mutex{}
		s.users[userID] = m
	}
	return m
}

// StartRequest carries the check-in parameters.
type StartRequest struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Address        string   `json:"address"`
	ClientID       *int64   `json:"clientId"`
	ServiceType    string   `json:"serviceType"`
	ServiceDetails string   `json:"serviceDetails"`
	BillableAmount *float64 `json:"billableAmount"`
}

// StartVisit opens a visit for the user at the given point. The client is
// resolved by location match first, then by the explicit ClientID; the
// address comes from the matched client when there is one, else the
// request, else reverse geocoding, else "Unknown location". Fails with
// ErrVisitOpen if the user already has an open visit.
func (s *Service) StartVisit(ctx context.Context, userID int64, req StartRequest) (*Visit, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if req.Latitude == nil || req.Longitude == nil {
		return nil, ErrInvalidLocation
	}
	point := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}

	if open, err := s.visits.CurrentOpen(userID); err != nil {
		return nil, err
	} else if open != nil {
		return nil, ErrVisitOpen
	}

	clients, err := s.clients.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	candidates := make([]geo.Candidate, 0, len(clients))
	for _, c := range clients {
		candidates = append(candidates, geo.Candidate{ID: c.ID, Latitude: c.Latitude, Longitude: c.Longitude})
	}

	var matched *client.Client
	if id := geo.Match(point, candidates, s.radiusKm); id != nil {
		for _, c := range clients {
			if c.ID == *id {
				matched = c
				break
			}
		}
	}

	clientID, err := s.resolveClient(userID, matched, req.ClientID)
	if err != nil {
		return nil, err
	}

	// The location match wins the address too, mirroring client resolution.
	address := req.Address
	if matched != nil && matched.Address != "" {
		address = matched.Address
	}
	if address == "" && s.geocoder != nil {
		resolved, err := s.geocoder.Reverse(ctx, point.Latitude, point.Longitude)
		if err != nil {
			slog.Debug("reverse geocode failed", "error", err)
		} else {
			address = resolved
		}
	}
	if address == "" {
		address = "Unknown location"
	}

	return s.visits.Insert(&Visit{
		UserID:          userID,
		ClientID:        clientID,
		Address:         address,
		StartTime:       s.now(),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		IsKnownLocation: matched != nil,
		ServiceType:     req.ServiceType,
		ServiceDetails:  req.ServiceDetails,
		BillableAmount:  req.BillableAmount,
	})
}

// resolveClient picks the visit's client: a location match wins over the
// explicit ID. An explicit ID must reference a client owned by the user.
func (s *Service) resolveClient(userID int64, matched *client.Client, explicit *int64) (*int64, error) {
	if matched != nil {
		id := matched.ID
		return &id, nil
	}
	if explicit == nil {
		return nil, nil
	}

	c, err := s.clients.GetByID(*explicit)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.UserID != userID {
		return nil, ErrForbidden
	}
	return explicit, nil
}

// EndVisit closes an open visit, deriving the duration as whole minutes
// rounded half away from zero.
func (s *Service) EndVisit(visitID, userID int64) (*Visit, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	v, err := s.visits.GetByID(visitID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	if v.UserID != userID {
		return nil, ErrForbidden
	}
	if !v.Open() {
		return nil, ErrAlreadyEnded
	}

	end := s.now()
	duration := int64(math.Round(end.Sub(v.StartTime).Minutes()))

	return s.visits.Close(visitID, end, duration)
}

// CurrentOpenVisit returns the user's open visit, or nil.
func (s *Service) CurrentOpenVisit(userID int64) (*Visit, error) {
	return s.visits.CurrentOpen(userID)
}

// UninvoicedVisits returns the user's closed, uninvoiced visits in
// ascending id order.
func (s *Service) UninvoicedVisits(userID int64) ([]*Visit, error) {
	return s.visits.Uninvoiced(userID)
}

// Visit returns one of the user's visits by ID.
func (s *Service) Visit(visitID, userID int64) (*Visit, error) {
	v, err := s.visits.GetByID(visitID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	if v.UserID != userID {
		return nil, ErrForbidden
	}
	return v, nil
}

// Visits returns all of the user's visits, oldest first.
func (s *Service) Visits(userID int64) ([]*Visit, error) {
	return s.visits.ListByUserID(userID)
}

// VisitsOnDate returns the user's visits that started on the given day.
func (s *Service) VisitsOnDate(userID int64, day time.Time) ([]*Visit, error) {
	return s.visits.ListByDate(userID, day)
}

// VisitsForClient returns the user's visits to one client. The client
// must belong to the user.
func (s *Service) VisitsForClient(userID, clientID int64) ([]*Visit, error) {
	c, err := s.clients.GetByID(clientID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.UserID != userID {
		return nil, ErrForbidden
	}
	return s.visits.ListByClientID(clientID)
}
