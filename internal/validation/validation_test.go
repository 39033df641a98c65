package validation

import (
	"testing"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
)

type contact struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required,phone10"`
	Email string `json:"email" validate:"required,emailshape"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        contact
		wantField string
	}{
		{"valid", contact{"Jane", "0712345678", "jane@example.com"}, ""},
		{"nine digit phone", contact{"Jane", "071234567", "jane@example.com"}, "phone"},
		{"letters in phone", contact{"Jane", "07123456ab", "jane@example.com"}, "phone"},
		{"email without dot", contact{"Jane", "0712345678", "jane@example"}, "email"},
		{"missing name", contact{"", "0712345678", "jane@example.com"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !apperrors.Is(err, apperrors.Validation) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			_, details := apperrors.Public(err)
			if len(details) != 1 || details[0].Field != tt.wantField {
				t.Errorf("Expected one detail for %s, got %+v", tt.wantField, details)
			}
		})
	}
}

func TestPatterns(t *testing.T) {
	if !phonePattern.MatchString("0712345678") || phonePattern.MatchString("+254712345678") {
		t.Error("phone pattern mismatch")
	}
	if !emailPattern.MatchString("a@b.co") || emailPattern.MatchString("a b@c.d") {
		t.Error("email pattern mismatch")
	}
	if !timePattern.MatchString("23:59") || timePattern.MatchString("24:00") {
		t.Error("time pattern mismatch")
	}
}
