package database

import (
	"gorm.io/gorm"

	"github.com/chachabrian/rideshare-backend/internal/models"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Ride{},
		&models.BookingRequest{},
		&models.Booking{},
	)
	if err != nil {
		return err
	}

	// Seats must never go negative, whatever path writes them
	constraints := []string{
		`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_seats_check`,
		`ALTER TABLE rides ADD CONSTRAINT rides_seats_check CHECK (seats >= 0)`,
		`ALTER TABLE booking_requests DROP CONSTRAINT IF EXISTS booking_requests_status_check`,
		`ALTER TABLE booking_requests ADD CONSTRAINT booking_requests_status_check CHECK (status IN ('pending', 'accepted', 'rejected'))`,
		`ALTER TABLE booking_requests DROP CONSTRAINT IF EXISTS booking_requests_seats_check`,
		`ALTER TABLE booking_requests ADD CONSTRAINT booking_requests_seats_check CHECK (seats_booked >= 1)`,
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
