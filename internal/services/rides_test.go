package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository/memory"
)

var rideClock = time.Date(2030, 1, 10, 8, 0, 0, 0, time.UTC)

func setupRideService() (*RideService, *memory.Store) {
	store := memory.NewStore()
	service := NewRideService(store, zap.NewNop())
	service.location = time.UTC
	service.now = func() time.Time { return rideClock }
	return service, store
}

func rideInput() PublishRideInput {
	return PublishRideInput{
		Type:          models.RideTypeCar,
		From:          " Pune ",
		To:            "Mumbai",
		Date:          "2030-01-12",
		Time:          "09:30",
		Seats:         3,
		Price:         250,
		DriverName:    "Ravi",
		DriverPhone:   "9876543210",
		DriverLicense: "MH-1234",
		VehicleType:   "Sedan",
		VehicleModel:  "Dzire",
		VehicleNumber: "MH12AB1234",
		VehicleColor:  "White",
	}
}

func TestRideService_Publish(t *testing.T) {
	service, _ := setupRideService()

	ride, err := service.Publish(context.Background(), "driver-1", rideInput())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if ride.Status != models.RideStatusActive || ride.UserID != "driver-1" {
		t.Errorf("Unexpected ride %+v", ride)
	}
	if ride.From != "Pune" {
		t.Errorf("Expected trimmed origin, got %q", ride.From)
	}
	want := time.Date(2030, 1, 12, 9, 30, 0, 0, time.UTC)
	if !ride.Date.Equal(want) {
		t.Errorf("Expected departure %v, got %v", want, ride.Date)
	}
}

func TestRideService_Publish_Invalid(t *testing.T) {
	service, _ := setupRideService()

	tests := []struct {
		name   string
		modify func(*PublishRideInput)
	}{
		{"too many car seats", func(in *PublishRideInput) { in.Seats = 5 }},
		{"too many bike seats", func(in *PublishRideInput) { in.Type = models.RideTypeBike; in.Seats = 3 }},
		{"zero seats", func(in *PublishRideInput) { in.Seats = 0 }},
		{"unknown type", func(in *PublishRideInput) { in.Type = "bus" }},
		{"bad time", func(in *PublishRideInput) { in.Time = "9am" }},
		{"bad date", func(in *PublishRideInput) { in.Date = "12/01/2030" }},
		{"in the past", func(in *PublishRideInput) { in.Date = "2030-01-09" }},
		{"missing vehicle", func(in *PublishRideInput) { in.VehicleNumber = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := rideInput()
			tt.modify(&in)
			if _, err := service.Publish(context.Background(), "driver-1", in); !apperrors.Is(err, apperrors.Validation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestRideService_Search(t *testing.T) {
	service, store := setupRideService()
	publish := func(from, to, date string, typ models.RideType) *models.Ride {
		in := rideInput()
		in.From, in.To, in.Date, in.Type = from, to, date, typ
		in.Seats = 1
		ride, err := service.Publish(context.Background(), "driver-1", in)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		return ride
	}
	publish("Pune", "Mumbai", "2030-01-12", models.RideTypeCar)
	publish("Pune Station", "Nashik", "2030-01-15", models.RideTypeBike)
	late := publish("Goa", "Mumbai", "2030-01-20", models.RideTypeCar)

	// A pending request on the last ride shows up in its count.
	if err := store.CreateBookingRequest(context.Background(), &models.BookingRequest{
		ID: "req-1", RideID: late.ID, PassengerID: "p", SeatsBooked: 1,
		Status: models.RequestStatusPending, CreatedAt: rideClock,
	}); err != nil {
		t.Fatalf("CreateBookingRequest failed: %v", err)
	}

	tests := []struct {
		name  string
		query SearchQuery
		want  int
	}{
		{"everything", SearchQuery{}, 3},
		{"case-insensitive origin", SearchQuery{From: "pune"}, 2},
		{"destination", SearchQuery{To: "MUM"}, 2},
		{"type filter", SearchQuery{Type: "bike"}, 1},
		{"all types", SearchQuery{Type: "all"}, 3},
		{"from date", SearchQuery{Date: "2030-01-14"}, 2},
		{"date in the past uses now", SearchQuery{Date: "2020-01-01"}, 3},
		{"regex characters are literal", SearchQuery{From: "P.ne"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rides, err := service.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(rides) != tt.want {
				t.Errorf("Expected %d rides, got %d", tt.want, len(rides))
			}
		})
	}

	rides, _ := service.ListActive(context.Background())
	if rides[len(rides)-1].ID != late.ID || rides[len(rides)-1].PendingBookings != 1 {
		t.Errorf("Expected latest ride last with one pending booking")
	}

	if _, err := service.Search(context.Background(), SearchQuery{Type: "bus"}); !apperrors.Is(err, apperrors.Validation) {
		t.Errorf("Expected validation error for unknown type, got %v", err)
	}
}

func TestRideService_Cancel(t *testing.T) {
	service, _ := setupRideService()
	ride, err := service.Publish(context.Background(), "driver-1", rideInput())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if _, err := service.Cancel(context.Background(), ride.ID, "someone"); !apperrors.Is(err, apperrors.Forbidden) {
		t.Errorf("Expected Forbidden, got %v", err)
	}
	cancelled, err := service.Cancel(context.Background(), ride.ID, "driver-1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != models.RideStatusCancelled || cancelled.Seats != 3 {
		t.Errorf("Unexpected cancelled ride %+v", cancelled)
	}
	if _, err := service.Cancel(context.Background(), ride.ID, "driver-1"); !apperrors.Is(err, apperrors.Conflict) {
		t.Errorf("Expected Conflict on second cancel, got %v", err)
	}

	mine, err := service.ListMine(context.Background(), "driver-1")
	if err != nil || len(mine) != 1 {
		t.Errorf("Expected cancelled ride in owner's list, got %d (%v)", len(mine), err)
	}
}
