package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository"
	"github.com/chachabrian/rideshare-backend/internal/validation"
)

const dateLayout = "2006-01-02"

type RideService struct {
	store    repository.Store
	log      *zap.Logger
	location *time.Location
	now      func() time.Time
	newID    func() string
}

func NewRideService(store repository.Store, log *zap.Logger) *RideService {
	return &RideService{
		store:    store,
		log:      log,
		location: time.Local,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type PublishRideInput struct {
	Type          models.RideType `json:"type" validate:"required,oneof=car bike"`
	From          string          `json:"from" validate:"required"`
	To            string          `json:"to" validate:"required"`
	Date          string          `json:"date" validate:"required"`
	Time          string          `json:"time" validate:"required,hhmm"`
	Seats         int             `json:"seats" validate:"required,min=1"`
	Price         float64         `json:"price" validate:"required,gt=0"`
	Description   string          `json:"description"`
	DriverName    string          `json:"driverName" validate:"required"`
	DriverPhone   string          `json:"driverPhone" validate:"required"`
	DriverLicense string          `json:"driverLicense" validate:"required"`
	VehicleType   string          `json:"vehicleType" validate:"required"`
	VehicleModel  string          `json:"vehicleModel" validate:"required"`
	VehicleNumber string          `json:"vehicleNumber" validate:"required"`
	VehicleColor  string          `json:"vehicleColor" validate:"required"`
}

// Publish creates an active ride owned by ownerID.
func (s *RideService) Publish(ctx context.Context, ownerID string, in PublishRideInput) (*models.Ride, error) {
	in.From = strings.TrimSpace(in.From)
	in.To = strings.TrimSpace(in.To)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if limit := in.Type.MaxSeats(); in.Seats > limit {
		return nil, apperrors.Invalid(
			fmt.Sprintf("%s rides can have 1-%d seats", titleCase(string(in.Type)), limit),
			apperrors.Detail{Field: "seats", Message: fmt.Sprintf("must be between 1 and %d", limit)},
		)
	}

	departure, err := time.ParseInLocation(dateLayout+" 15:04", in.Date+" "+in.Time, s.location)
	if err != nil {
		return nil, apperrors.Invalid("Invalid date", apperrors.Detail{Field: "date", Message: "date must be YYYY-MM-DD"})
	}
	if departure.Before(s.now()) {
		return nil, apperrors.Invalid("Cannot create rides in the past")
	}

	ride := &models.Ride{
		ID:            s.newID(),
		UserID:        ownerID,
		Type:          in.Type,
		From:          in.From,
		To:            in.To,
		Date:          departure,
		Time:          in.Time,
		Seats:         in.Seats,
		Price:         in.Price,
		Description:   in.Description,
		Status:        models.RideStatusActive,
		DriverName:    in.DriverName,
		DriverPhone:   in.DriverPhone,
		DriverLicense: in.DriverLicense,
		VehicleType:   in.VehicleType,
		VehicleModel:  in.VehicleModel,
		VehicleNumber: in.VehicleNumber,
		VehicleColor:  in.VehicleColor,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateRide(ctx, ride); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to publish ride", err)
	}

	s.log.Info("ride published",
		zap.String("ride_id", ride.ID),
		zap.String("owner_id", ownerID),
		zap.Int("seats", ride.Seats))
	return ride, nil
}

// ListMine returns every ride the owner published, by departure.
func (s *RideService) ListMine(ctx context.Context, ownerID string) ([]*models.Ride, error) {
	rides, err := s.store.ListRidesByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to list rides", err)
	}
	return nonNil(rides), nil
}

// ListActive returns every active ride that has not departed yet.
func (s *RideService) ListActive(ctx context.Context) ([]*models.RideWithPending, error) {
	return s.Search(ctx, SearchQuery{})
}

type SearchQuery struct {
	From string
	To   string
	Date string
	Type string
}

// Search matches active rides departing no earlier than the later of the
// query date and now. From and To are case-insensitive substrings matched
// literally.
func (s *RideService) Search(ctx context.Context, q SearchQuery) ([]*models.RideWithPending, error) {
	now := s.now()
	filter := repository.RideFilter{
		From:    strings.TrimSpace(q.From),
		To:      strings.TrimSpace(q.To),
		Status:  models.RideStatusActive,
		MinDate: now,
	}

	if q.Date != "" {
		day, err := time.ParseInLocation(dateLayout, q.Date, s.location)
		if err != nil {
			return nil, apperrors.Invalid("Invalid date", apperrors.Detail{Field: "date", Message: "date must be YYYY-MM-DD"})
		}
		if day.After(now) {
			filter.MinDate = day
		}
	}

	switch t := strings.ToLower(strings.TrimSpace(q.Type)); t {
	case "", "all":
	case string(models.RideTypeCar), string(models.RideTypeBike):
		filter.Type = models.RideType(t)
	default:
		return nil, apperrors.Invalid("Invalid ride type", apperrors.Detail{Field: "type", Message: "type must be car, bike or all"})
	}

	rides, err := s.store.SearchRides(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to search rides", err)
	}

	ids := make([]string, 0, len(rides))
	for _, r := range rides {
		ids = append(ids, r.ID)
	}
	counts, err := s.store.CountPendingByRides(ctx, ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to count pending requests", err)
	}

	out := make([]*models.RideWithPending, 0, len(rides))
	for _, r := range rides {
		out = append(out, &models.RideWithPending{Ride: *r, PendingBookings: counts[r.ID]})
	}
	return out, nil
}

// Cancel withdraws an active ride. Seats and existing bookings are left as
// they are.
func (s *RideService) Cancel(ctx context.Context, rideID, ownerID string) (*models.Ride, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err, "Ride")
	}
	if !ride.OwnedBy(ownerID) {
		return nil, apperrors.New(apperrors.Forbidden, "Not authorized to cancel this ride")
	}

	cancelled, err := s.store.CancelRide(ctx, rideID)
	switch {
	case errors.Is(err, repository.ErrRideNotActive):
		return nil, apperrors.New(apperrors.Conflict, "Ride is not active")
	case err != nil:
		return nil, storeError(err, "Ride")
	}

	s.log.Info("ride cancelled", zap.String("ride_id", rideID))
	return cancelled, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
