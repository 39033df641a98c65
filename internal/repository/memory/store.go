package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository"
)

// Store keeps every collection in process memory behind a single lock.
// Records are copied on the way in and out so callers never share state
// with the store.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	rides     map[string]*models.Ride
	requests  map[string]*models.BookingRequest
	bookings  map[string]*models.Booking
	byEmail   map[string]string
	byRequest map[string]string
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:     make(map[string]*models.User),
		rides:     make(map[string]*models.Ride),
		requests:  make(map[string]*models.BookingRequest),
		bookings:  make(map[string]*models.Booking),
		byEmail:   make(map[string]string),
		byRequest: make(map[string]string),
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return fmt.Errorf("user %s: %w", user.Email, repository.ErrDuplicate)
	}
	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[email]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

func (s *Store) UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[userID]
	if !exists {
		return repository.ErrNotFound
	}
	u.Notifications = prefs
	return nil
}

func (s *Store) SetPushToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[userID]
	if !exists {
		return repository.ErrNotFound
	}
	u.PushToken = token
	return nil
}

func (s *Store) CreateRide(ctx context.Context, ride *models.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rides[ride.ID]; exists {
		return repository.ErrDuplicate
	}
	r := *ride
	s.rides[r.ID] = &r
	return nil
}

func (s *Store) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rides[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (s *Store) GetRides(ctx context.Context, ids []string) (map[string]*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Ride, len(ids))
	for _, id := range ids {
		if r, exists := s.rides[id]; exists {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *Store) ListRidesByOwner(ctx context.Context, ownerID string) ([]*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rides []*models.Ride
	for _, r := range s.rides {
		if r.UserID == ownerID {
			cp := *r
			rides = append(rides, &cp)
		}
	}
	sortByDeparture(rides)
	return rides, nil
}

func (s *Store) SearchRides(ctx context.Context, filter repository.RideFilter) ([]*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := strings.ToLower(filter.From)
	to := strings.ToLower(filter.To)

	var rides []*models.Ride
	for _, r := range s.rides {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if !filter.MinDate.IsZero() && r.Date.Before(filter.MinDate) {
			continue
		}
		if from != "" && !strings.Contains(strings.ToLower(r.From), from) {
			continue
		}
		if to != "" && !strings.Contains(strings.ToLower(r.To), to) {
			continue
		}
		cp := *r
		rides = append(rides, &cp)
	}
	sortByDeparture(rides)
	return rides, nil
}

func (s *Store) CancelRide(ctx context.Context, id string) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rides[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	if r.Status != models.RideStatusActive {
		return nil, repository.ErrRideNotActive
	}
	r.Status = models.RideStatusCancelled
	out := *r
	return &out, nil
}

func (s *Store) CreateBookingRequest(ctx context.Context, req *models.BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return repository.ErrDuplicate
	}
	cp := *req
	s.requests[cp.ID] = &cp
	return nil
}

func (s *Store) GetBookingRequest(ctx context.Context, id string) (*models.BookingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, exists := s.requests[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *req
	return &out, nil
}

func (s *Store) ListBookingRequestsByRide(ctx context.Context, rideID string) ([]*models.BookingRequest, error) {
	return s.listRequests(func(r *models.BookingRequest) bool { return r.RideID == rideID }), nil
}

func (s *Store) ListBookingRequestsByPassenger(ctx context.Context, passengerID string) ([]*models.BookingRequest, error) {
	return s.listRequests(func(r *models.BookingRequest) bool { return r.PassengerID == passengerID }), nil
}

func (s *Store) listRequests(match func(*models.BookingRequest) bool) []*models.BookingRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.BookingRequest
	for _, r := range s.requests {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) CountPendingByRides(ctx context.Context, rideIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(rideIDs))
	for _, id := range rideIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[string]int)
	for _, r := range s.requests {
		if r.Status != models.RequestStatusPending {
			continue
		}
		if _, ok := wanted[r.RideID]; ok {
			counts[r.RideID]++
		}
	}
	return counts, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetBookingByRequest(ctx context.Context, requestID string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byRequest[requestID]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *s.bookings[id]
	return &out, nil
}

// Atomically holds the write lock for the whole of fn. Writes made through
// tx are recorded in an undo log and rolled back when fn fails.
func (s *Store) Atomically(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close(ctx context.Context) error { return nil }

type memTx struct {
	s    *Store
	undo []func()
}

func (tx *memTx) ResolveBookingRequest(ctx context.Context, id string, status models.RequestStatus, message string, at time.Time) (*models.BookingRequest, error) {
	req, exists := tx.s.requests[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	if req.Status != models.RequestStatusPending {
		return nil, repository.ErrAlreadyResolved
	}
	prev := *req
	tx.undo = append(tx.undo, func() { *req = prev })

	req.Status = status
	req.DriverMessage = message
	respondedAt := at
	req.RespondedAt = &respondedAt
	out := *req
	return &out, nil
}

func (tx *memTx) ReserveSeats(ctx context.Context, rideID string, n int) (*models.Ride, error) {
	ride, exists := tx.s.rides[rideID]
	if !exists {
		return nil, repository.ErrNotFound
	}
	if ride.Status != models.RideStatusActive {
		return nil, repository.ErrRideNotActive
	}
	if ride.Seats < n {
		return nil, repository.ErrInsufficientSeats
	}
	prev := *ride
	tx.undo = append(tx.undo, func() { *ride = prev })

	ride.Seats -= n
	if ride.Seats == 0 {
		ride.Status = models.RideStatusCompleted
	}
	out := *ride
	return &out, nil
}

func (tx *memTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if _, exists := tx.s.byRequest[booking.RequestID]; exists {
		return fmt.Errorf("booking for request %s: %w", booking.RequestID, repository.ErrDuplicate)
	}
	cp := *booking
	tx.s.bookings[cp.ID] = &cp
	tx.s.byRequest[cp.RequestID] = cp.ID
	tx.undo = append(tx.undo, func() {
		delete(tx.s.bookings, cp.ID)
		delete(tx.s.byRequest, cp.RequestID)
	})
	return nil
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func sortByDeparture(rides []*models.Ride) {
	sort.SliceStable(rides, func(i, j int) bool {
		if !rides[i].Date.Equal(rides[j].Date) {
			return rides[i].Date.Before(rides[j].Date)
		}
		return rides[i].Time < rides[j].Time
	})
}
