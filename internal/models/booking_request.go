package models

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsDecision reports whether s is a status a driver may answer with.
func (s RequestStatus) IsDecision() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// DefaultMessage is shown to the passenger when the driver left none.
func (s RequestStatus) DefaultMessage() string {
	switch s {
	case RequestStatusAccepted:
		return "Your booking request has been accepted!"
	case RequestStatusRejected:
		return "Your booking request has been rejected."
	case RequestStatusPending:
		return "Your booking request is pending approval."
	default:
		return "Status update for your booking request."
	}
}

// BookingRequest is a passenger's ask for seats on a ride. Its status leaves
// pending exactly once.
type BookingRequest struct {
	ID             string        `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	RideID         string        `json:"rideId" gorm:"type:varchar(36);not null;index" bson:"rideId"`
	PassengerID    string        `json:"passengerId" gorm:"type:varchar(36);not null;index" bson:"passengerId"`
	PassengerName  string        `json:"passengerName" gorm:"not null" bson:"passengerName"`
	PassengerPhone string        `json:"passengerPhone" gorm:"not null" bson:"passengerPhone"`
	PassengerEmail string        `json:"passengerEmail" gorm:"not null" bson:"passengerEmail"`
	SeatsBooked    int           `json:"seatsBooked" gorm:"not null;default:1" bson:"seatsBooked"`
	Status         RequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index" bson:"status"`
	DriverMessage  string        `json:"driverMessage,omitempty" bson:"driverMessage,omitempty"`
	CreatedAt      time.Time     `json:"createdAt" bson:"createdAt"`
	RespondedAt    *time.Time    `json:"respondedAt,omitempty" bson:"respondedAt,omitempty"`
}

// TableName specifies the table name
func (BookingRequest) TableName() string {
	return "booking_requests"
}

// BookingRequestView is a request together with the ride it points at.
type BookingRequestView struct {
	BookingRequest
	Ride *Ride `json:"ride"`
}

// RideSummary is the subset of ride details a passenger sees next to their requests.
type RideSummary struct {
	From          string    `json:"from"`
	To            string    `json:"to"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
	Price         float64   `json:"price"`
	DriverName    string    `json:"driverName"`
	DriverPhone   string    `json:"driverPhone"`
	VehicleType   string    `json:"vehicleType"`
	VehicleModel  string    `json:"vehicleModel"`
	VehicleNumber string    `json:"vehicleNumber"`
}

func SummarizeRide(r *Ride) *RideSummary {
	if r == nil {
		return nil
	}
	return &RideSummary{
		From:          r.From,
		To:            r.To,
		Date:          r.Date,
		Time:          r.Time,
		Price:         r.Price,
		DriverName:    r.DriverName,
		DriverPhone:   r.DriverPhone,
		VehicleType:   r.VehicleType,
		VehicleModel:  r.VehicleModel,
		VehicleNumber: r.VehicleNumber,
	}
}

// RequestSummary is the flattened passenger-facing shape of a request.
type RequestSummary struct {
	ID            string        `json:"_id"`
	Status        RequestStatus `json:"status"`
	SeatsBooked   int           `json:"seatsBooked"`
	CreatedAt     time.Time     `json:"createdAt"`
	DriverMessage string        `json:"driverMessage"`
	Ride          *RideSummary  `json:"ride"`
}
