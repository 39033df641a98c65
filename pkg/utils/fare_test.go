package utils

import "testing"

func TestCalculateBookingFare(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		seats int
		total float64
	}{
		{"single seat", 250, 1, 250},
		{"several seats", 99.99, 3, 299.97},
		{"rounds to cents", 33.333, 3, 100},
		{"negative seats", 100, -2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fare := CalculateBookingFare(tt.price, tt.seats)
			if fare.Total != tt.total {
				t.Errorf("Expected total %.2f, got %.2f", tt.total, fare.Total)
			}
		})
	}

	if got := FormatAmount(500); got != "500.00" {
		t.Errorf("Expected 500.00, got %s", got)
	}
}
