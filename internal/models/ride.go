package models

import "time"

type RideType string

const (
	RideTypeCar  RideType = "car"
	RideTypeBike RideType = "bike"
)

// MaxSeats is the largest capacity a driver may publish for the ride type.
func (t RideType) MaxSeats() int {
	switch t {
	case RideTypeCar:
		return 4
	case RideTypeBike:
		return 2
	default:
		return 0
	}
}

type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// Ride is a trip offered by a driver. Seats holds the remaining capacity and
// only ever goes down through an accepted booking request.
type Ride struct {
	ID          string     `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserID      string     `json:"userId" gorm:"type:varchar(36);not null;index" bson:"userId"`
	Type        RideType   `json:"type" gorm:"type:varchar(10);not null" bson:"type"`
	From        string     `json:"from" gorm:"not null" bson:"from"`
	To          string     `json:"to" gorm:"not null" bson:"to"`
	Date        time.Time  `json:"date" gorm:"not null;index" bson:"date"`
	Time        string     `json:"time" gorm:"type:varchar(5);not null" bson:"time"`
	Seats       int        `json:"seats" gorm:"not null" bson:"seats"`
	Price       float64    `json:"price" gorm:"not null" bson:"price"`
	Description string     `json:"description" bson:"description"`
	Status      RideStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index" bson:"status"`

	// Driver details
	DriverName    string `json:"driverName" gorm:"not null" bson:"driverName"`
	DriverPhone   string `json:"driverPhone" gorm:"not null" bson:"driverPhone"`
	DriverLicense string `json:"driverLicense" gorm:"not null" bson:"driverLicense"`

	// Vehicle details
	VehicleType   string `json:"vehicleType" gorm:"not null" bson:"vehicleType"`
	VehicleModel  string `json:"vehicleModel" gorm:"not null" bson:"vehicleModel"`
	VehicleNumber string `json:"vehicleNumber" gorm:"not null" bson:"vehicleNumber"`
	VehicleColor  string `json:"vehicleColor" gorm:"not null" bson:"vehicleColor"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}

func (r *Ride) OwnedBy(userID string) bool {
	return r.UserID == userID
}

// RideWithPending is a search result annotated with the number of requests
// still waiting for the driver. The count is informational only.
type RideWithPending struct {
	Ride
	PendingBookings int `json:"pendingBookings"`
}
