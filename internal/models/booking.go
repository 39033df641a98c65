package models

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
)

// Booking is the confirmed seat allocation left behind by an accepted
// request. It is written once and never updated.
type Booking struct {
	ID             string        `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	RideID         string        `json:"rideId" gorm:"type:varchar(36);not null;index" bson:"rideId"`
	RequestID      string        `json:"requestId" gorm:"type:varchar(36);not null;uniqueIndex" bson:"requestId"`
	UserID         string        `json:"userId" gorm:"type:varchar(36);not null;index" bson:"userId"`
	PassengerName  string        `json:"passengerName" gorm:"not null" bson:"passengerName"`
	PassengerPhone string        `json:"passengerPhone" gorm:"not null" bson:"passengerPhone"`
	PassengerEmail string        `json:"passengerEmail" gorm:"not null" bson:"passengerEmail"`
	SeatsBooked    int           `json:"seatsBooked" gorm:"not null" bson:"seatsBooked"`
	Status         BookingStatus `json:"status" gorm:"type:varchar(20);not null;default:'confirmed'" bson:"status"`
	CreatedAt      time.Time     `json:"createdAt" bson:"createdAt"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}

// NewBookingFromRequest copies passenger contact and seat count from an
// accepted request.
func NewBookingFromRequest(id string, req *BookingRequest, now time.Time) *Booking {
	return &Booking{
		ID:             id,
		RideID:         req.RideID,
		RequestID:      req.ID,
		UserID:         req.PassengerID,
		PassengerName:  req.PassengerName,
		PassengerPhone: req.PassengerPhone,
		PassengerEmail: req.PassengerEmail,
		SeatsBooked:    req.SeatsBooked,
		Status:         BookingStatusConfirmed,
		CreatedAt:      now,
	}
}

// BookingView is a booking together with its ride.
type BookingView struct {
	Booking
	Ride *Ride `json:"ride"`
}
