package utils

import (
	"fmt"
	"math"
)

// BookingFare is the amount a passenger owes for an accepted request.
type BookingFare struct {
	PricePerSeat float64 `json:"pricePerSeat"`
	Seats        int     `json:"seats"`
	Total        float64 `json:"total"`
}

// CalculateBookingFare multiplies the seat price by the seats booked,
// rounded to two decimals.
func CalculateBookingFare(pricePerSeat float64, seats int) BookingFare {
	if seats < 0 {
		seats = 0
	}
	return BookingFare{
		PricePerSeat: roundFare(pricePerSeat),
		Seats:        seats,
		Total:        roundFare(pricePerSeat * float64(seats)),
	}
}

// FormatAmount renders an amount with two decimals for emails and SMS.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", roundFare(amount))
}

func roundFare(v float64) float64 {
	return math.Round(v*100) / 100
}
