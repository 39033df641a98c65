package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository"
	"github.com/chachabrian/rideshare-backend/internal/validation"
)

// Notifier receives booking events after they are committed.
type Notifier interface {
	RequestResolved(ctx context.Context, out Outcome)
	RequestSubmitted(ctx context.Context, sub Submission)
}

type BookingService struct {
	store    repository.Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewBookingService(store repository.Store, notifier Notifier, log *zap.Logger) *BookingService {
	return &BookingService{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type SubmitInput struct {
	RideID      string `json:"-"`
	PassengerID string `json:"-"`
	Name        string `json:"passengerName" validate:"required"`
	Phone       string `json:"passengerPhone" validate:"required,phone10"`
	Email       string `json:"passengerEmail" validate:"required,emailshape"`
	Seats       int    `json:"seatsBooked" validate:"min=1"`
}

// Submit records a pending booking request from a passenger. Contact
// details are validated before anything is read or written.
func (s *BookingService) Submit(ctx context.Context, in SubmitInput) (*models.BookingRequest, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Seats == 0 {
		in.Seats = 1
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	ride, err := s.store.GetRide(ctx, in.RideID)
	if err != nil {
		return nil, storeError(err, "Ride")
	}
	if ride.Status != models.RideStatusActive {
		return nil, apperrors.New(apperrors.Conflict, "Ride is not available")
	}
	// Capacity is checked again when the driver accepts.
	if in.Seats > ride.Seats {
		return nil, apperrors.New(apperrors.Conflict, "Not enough seats available")
	}

	req := &models.BookingRequest{
		ID:             s.newID(),
		RideID:         ride.ID,
		PassengerID:    in.PassengerID,
		PassengerName:  in.Name,
		PassengerPhone: in.Phone,
		PassengerEmail: in.Email,
		SeatsBooked:    in.Seats,
		Status:         models.RequestStatusPending,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateBookingRequest(ctx, req); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to create booking request", err)
	}

	bookingRequestsSubmitted.Inc()
	s.log.Info("booking request created",
		zap.String("request_id", req.ID),
		zap.String("ride_id", req.RideID),
		zap.Int("seats", req.SeatsBooked))

	s.notifier.RequestSubmitted(ctx, Submission{Request: *req, Ride: *ride})
	return req, nil
}

type RespondInput struct {
	RequestID   string               `json:"-"`
	ResponderID string               `json:"-"`
	Decision    models.RequestStatus `json:"status"`
	Message     string               `json:"message"`
}

// Respond applies a driver's decision to a pending request. Acceptance
// resolves the request, takes the seats and writes the booking as one unit.
func (s *BookingService) Respond(ctx context.Context, in RespondInput) (*models.BookingRequestView, error) {
	if !in.Decision.IsDecision() {
		return nil, apperrors.Invalid("Invalid status", apperrors.Detail{
			Field:   "status",
			Message: "status must be accepted or rejected",
		})
	}

	req, err := s.store.GetBookingRequest(ctx, in.RequestID)
	if err != nil {
		return nil, storeError(err, "Booking request")
	}
	ride, err := s.store.GetRide(ctx, req.RideID)
	if err != nil {
		return nil, storeError(err, "Ride")
	}
	if !ride.OwnedBy(in.ResponderID) {
		return nil, apperrors.New(apperrors.Forbidden, "Not authorized to respond to this booking request")
	}
	if req.Status != models.RequestStatusPending {
		return nil, apperrors.New(apperrors.Conflict, "Booking request already resolved")
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		message = in.Decision.DefaultMessage()
	}

	var resolved *models.BookingRequest
	updatedRide := ride
	err = s.store.Atomically(ctx, func(tx repository.Tx) error {
		r, err := tx.ResolveBookingRequest(ctx, req.ID, in.Decision, message, s.now())
		if err != nil {
			return err
		}
		resolved = r
		if in.Decision != models.RequestStatusAccepted {
			return nil
		}

		updatedRide, err = tx.ReserveSeats(ctx, r.RideID, r.SeatsBooked)
		if err != nil {
			return err
		}
		return tx.CreateBooking(ctx, models.NewBookingFromRequest(s.newID(), r, s.now()))
	})
	if err != nil {
		return nil, s.respondError(err, req)
	}

	bookingRequestsResolved.WithLabelValues(string(in.Decision)).Inc()
	s.log.Info("booking request resolved",
		zap.String("request_id", resolved.ID),
		zap.String("ride_id", resolved.RideID),
		zap.String("status", string(resolved.Status)),
		zap.Int("seats_left", updatedRide.Seats))

	s.notifier.RequestResolved(ctx, Outcome{Request: *resolved, Ride: *updatedRide})
	return &models.BookingRequestView{BookingRequest: *resolved, Ride: updatedRide}, nil
}

func (s *BookingService) respondError(err error, req *models.BookingRequest) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyResolved):
		bookingConflicts.WithLabelValues("already_resolved").Inc()
		return apperrors.Wrap(apperrors.Conflict, "Booking request already resolved", err)
	case errors.Is(err, repository.ErrInsufficientSeats):
		bookingConflicts.WithLabelValues("insufficient_seats").Inc()
		return apperrors.Wrap(apperrors.Conflict, "Not enough seats available", err)
	case errors.Is(err, repository.ErrRideNotActive):
		bookingConflicts.WithLabelValues("ride_not_active").Inc()
		return apperrors.Wrap(apperrors.Conflict, "Ride is no longer active", err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.Wrap(apperrors.NotFound, "Booking request not found", err)
	case errors.Is(err, repository.ErrDuplicate):
		bookingConflicts.WithLabelValues("duplicate_booking").Inc()
		return apperrors.Wrap(apperrors.Conflict, "Booking request already resolved", err)
	default:
		s.log.Error("failed to resolve booking request",
			zap.String("request_id", req.ID), zap.Error(err))
		return apperrors.Wrap(apperrors.Internal, "failed to update booking request", err)
	}
}

// ListForRide returns the requests on a ride, newest first. Only the
// driver may see them.
func (s *BookingService) ListForRide(ctx context.Context, rideID, callerID string) ([]*models.BookingRequest, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err, "Ride")
	}
	if !ride.OwnedBy(callerID) {
		return nil, apperrors.New(apperrors.Forbidden, "Not authorized to view booking requests")
	}
	reqs, err := s.store.ListBookingRequestsByRide(ctx, rideID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to list booking requests", err)
	}
	return nonNil(reqs), nil
}

// ListForPassenger returns the passenger's requests with their rides.
func (s *BookingService) ListForPassenger(ctx context.Context, passengerID string) ([]*models.BookingRequestView, error) {
	reqs, err := s.store.ListBookingRequestsByPassenger(ctx, passengerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to list booking requests", err)
	}
	rides, err := ridesFor(ctx, s.store, reqs, func(r *models.BookingRequest) string { return r.RideID })
	if err != nil {
		return nil, err
	}

	views := make([]*models.BookingRequestView, 0, len(reqs))
	for _, r := range reqs {
		views = append(views, &models.BookingRequestView{BookingRequest: *r, Ride: rides[r.RideID]})
	}
	return views, nil
}

// PassengerSummaries is the flattened form of ListForPassenger.
func (s *BookingService) PassengerSummaries(ctx context.Context, passengerID string) ([]*models.RequestSummary, error) {
	views, err := s.ListForPassenger(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.RequestSummary, 0, len(views))
	for _, v := range views {
		msg := v.DriverMessage
		if msg == "" {
			msg = v.Status.DefaultMessage()
		}
		out = append(out, &models.RequestSummary{
			ID:            v.ID,
			Status:        v.Status,
			SeatsBooked:   v.SeatsBooked,
			CreatedAt:     v.CreatedAt,
			DriverMessage: msg,
			Ride:          models.SummarizeRide(v.Ride),
		})
	}
	return out, nil
}

// ListBookings returns the user's confirmed bookings with their rides.
func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]*models.BookingView, error) {
	bookings, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to list bookings", err)
	}
	rides, err := ridesFor(ctx, s.store, bookings, func(b *models.Booking) string { return b.RideID })
	if err != nil {
		return nil, err
	}

	views := make([]*models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, &models.BookingView{Booking: *b, Ride: rides[b.RideID]})
	}
	return views, nil
}

// PendingCount is the number of requests waiting on any of the driver's rides.
func (s *BookingService) PendingCount(ctx context.Context, driverID string) (int, error) {
	rides, err := s.store.ListRidesByOwner(ctx, driverID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.Internal, "failed to list rides", err)
	}
	ids := make([]string, 0, len(rides))
	for _, r := range rides {
		ids = append(ids, r.ID)
	}
	counts, err := s.store.CountPendingByRides(ctx, ids)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.Internal, "failed to count pending requests", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// ridesFor loads the rides referenced by items in one lookup.
func ridesFor[T any](ctx context.Context, store repository.RideRepository, items []T, rideID func(T) string) (map[string]*models.Ride, error) {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		id := rideID(it)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	rides, err := store.GetRides(ctx, ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to load rides", err)
	}
	return rides, nil
}

// storeError maps a lookup failure to a NotFound or Internal error.
func storeError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFoundf(what)
	}
	return apperrors.Wrap(apperrors.Internal, "failed to load "+strings.ToLower(what), err)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
