package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository"
)

// Store implements repository.Store on top of gorm.
type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"notify_email_enabled":  prefs.EmailEnabled,
		"notify_sms_enabled":    prefs.SMSEnabled,
		"notify_push_enabled":   prefs.PushEnabled,
		"notify_booking_alerts": prefs.BookingAlerts,
	})
	return affected(result)
}

func (s *Store) SetPushToken(ctx context.Context, userID, token string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("push_token", token)
	return affected(result)
}

func (s *Store) CreateRide(ctx context.Context, ride *models.Ride) error {
	if err := s.db.WithContext(ctx).Create(ride).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	if err := s.db.WithContext(ctx).First(&ride, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ride, nil
}

func (s *Store) GetRides(ctx context.Context, ids []string) (map[string]*models.Ride, error) {
	out := make(map[string]*models.Ride, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rides []*models.Ride
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rides).Error; err != nil {
		return nil, translate(err)
	}
	for _, r := range rides {
		out[r.ID] = r
	}
	return out, nil
}

func (s *Store) ListRidesByOwner(ctx context.Context, ownerID string) ([]*models.Ride, error) {
	var rides []*models.Ride
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order(`"date" ASC, "time" ASC`).
		Find(&rides).Error
	if err != nil {
		return nil, translate(err)
	}
	return rides, nil
}

func (s *Store) SearchRides(ctx context.Context, filter repository.RideFilter) ([]*models.Ride, error) {
	query := s.db.WithContext(ctx).Model(&models.Ride{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if !filter.MinDate.IsZero() {
		query = query.Where("date >= ?", filter.MinDate)
	}
	if filter.From != "" {
		query = query.Where(`"from" ILIKE ? ESCAPE '\'`, likePattern(filter.From))
	}
	if filter.To != "" {
		query = query.Where(`"to" ILIKE ? ESCAPE '\'`, likePattern(filter.To))
	}

	var rides []*models.Ride
	if err := query.Order(`"date" ASC, "time" ASC`).Find(&rides).Error; err != nil {
		return nil, translate(err)
	}
	return rides, nil
}

func (s *Store) CancelRide(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	result := s.db.WithContext(ctx).Model(&ride).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, models.RideStatusActive).
		Update("status", models.RideStatusCancelled)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, s.whyRideNotUpdated(ctx, s.db, id)
	}
	return &ride, nil
}

func (s *Store) CreateBookingRequest(ctx context.Context, req *models.BookingRequest) error {
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetBookingRequest(ctx context.Context, id string) (*models.BookingRequest, error) {
	var req models.BookingRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *Store) ListBookingRequestsByRide(ctx context.Context, rideID string) ([]*models.BookingRequest, error) {
	var reqs []*models.BookingRequest
	if err := s.db.WithContext(ctx).Where("ride_id = ?", rideID).Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, translate(err)
	}
	return reqs, nil
}

func (s *Store) ListBookingRequestsByPassenger(ctx context.Context, passengerID string) ([]*models.BookingRequest, error) {
	var reqs []*models.BookingRequest
	if err := s.db.WithContext(ctx).Where("passenger_id = ?", passengerID).Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, translate(err)
	}
	return reqs, nil
}

func (s *Store) CountPendingByRides(ctx context.Context, rideIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(rideIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		RideID string
		Count  int
	}
	err := s.db.WithContext(ctx).Model(&models.BookingRequest{}).
		Select("ride_id, COUNT(*) AS count").
		Where("ride_id IN ? AND status = ?", rideIDs, models.RequestStatusPending).
		Group("ride_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		counts[row.RideID] = row.Count
	}
	return counts, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (s *Store) GetBookingByRequest(ctx context.Context, requestID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&booking).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *Store) Atomically(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{store: s, db: db})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	store *Store
	db    *gorm.DB
}

func (tx *gormTx) ResolveBookingRequest(ctx context.Context, id string, status models.RequestStatus, message string, at time.Time) (*models.BookingRequest, error) {
	var req models.BookingRequest
	result := tx.db.WithContext(ctx).Model(&req).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"driver_message": message,
			"responded_at":   at,
		})
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.db.WithContext(ctx).Model(&models.BookingRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, translate(err)
		}
		if count == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrAlreadyResolved
	}
	return &req, nil
}

func (tx *gormTx) ReserveSeats(ctx context.Context, rideID string, n int) (*models.Ride, error) {
	var ride models.Ride
	result := tx.db.WithContext(ctx).Model(&ride).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ? AND seats >= ?", rideID, models.RideStatusActive, n).
		Updates(map[string]interface{}{
			"seats": gorm.Expr("seats - ?", n),
			"status": gorm.Expr("CASE WHEN seats - ? = 0 THEN ? ELSE status END",
				n, models.RideStatusCompleted),
		})
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, tx.store.whyRideNotUpdated(ctx, tx.db, rideID)
	}
	return &ride, nil
}

func (tx *gormTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := tx.db.WithContext(ctx).Create(booking).Error; err != nil {
		return translate(err)
	}
	return nil
}

// whyRideNotUpdated reads the ride back after a conditional update matched
// nothing and reports which condition failed.
func (s *Store) whyRideNotUpdated(ctx context.Context, db *gorm.DB, rideID string) error {
	var ride models.Ride
	if err := db.WithContext(ctx).Select("status", "seats").First(&ride, "id = ?", rideID).Error; err != nil {
		return translate(err)
	}
	if ride.Status != models.RideStatusActive {
		return repository.ErrRideNotActive
	}
	return repository.ErrInsufficientSeats
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	default:
		return err
	}
}

// isUniqueViolation catches 23505 when the dialector was opened without
// TranslateError.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// likePattern escapes LIKE metacharacters so user input is matched literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
