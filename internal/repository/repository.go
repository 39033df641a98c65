package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chachabrian/rideshare-backend/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrAlreadyResolved   = errors.New("booking request already resolved")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrRideNotActive     = errors.New("ride is no longer active")
)

// RideFilter narrows a ride search. Zero values mean "any".
type RideFilter struct {
	From    string
	To      string
	Type    models.RideType
	Status  models.RideStatus
	MinDate time.Time
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error
	SetPushToken(ctx context.Context, userID, token string) error
}

type RideRepository interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	GetRides(ctx context.Context, ids []string) (map[string]*models.Ride, error)
	ListRidesByOwner(ctx context.Context, ownerID string) ([]*models.Ride, error)
	SearchRides(ctx context.Context, filter RideFilter) ([]*models.Ride, error)
	// CancelRide moves an active ride to cancelled. ErrRideNotActive when it
	// is not active anymore.
	CancelRide(ctx context.Context, id string) (*models.Ride, error)
}

type BookingRequestRepository interface {
	CreateBookingRequest(ctx context.Context, req *models.BookingRequest) error
	GetBookingRequest(ctx context.Context, id string) (*models.BookingRequest, error)
	ListBookingRequestsByRide(ctx context.Context, rideID string) ([]*models.BookingRequest, error)
	ListBookingRequestsByPassenger(ctx context.Context, passengerID string) ([]*models.BookingRequest, error)
	// CountPendingByRides returns the number of pending requests per ride id.
	CountPendingByRides(ctx context.Context, rideIDs []string) (map[string]int, error)
}

type BookingRepository interface {
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	GetBookingByRequest(ctx context.Context, requestID string) (*models.Booking, error)
}

// Tx holds the writes that must land together when a driver answers a
// booking request. Every method is conditional on the current state.
type Tx interface {
	// ResolveBookingRequest moves a pending request to status. It returns
	// ErrAlreadyResolved when the request is no longer pending.
	ResolveBookingRequest(ctx context.Context, id string, status models.RequestStatus, message string, at time.Time) (*models.BookingRequest, error)
	// ReserveSeats takes n seats from an active ride and completes the ride
	// when none are left.
	ReserveSeats(ctx context.Context, rideID string, n int) (*models.Ride, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
}

// Store is the persistence boundary of the service.
type Store interface {
	UserRepository
	RideRepository
	BookingRequestRepository
	BookingRepository

	// Atomically runs fn as one unit. If fn returns an error none of its
	// writes are visible afterwards.
	Atomically(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
