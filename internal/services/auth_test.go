package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository/memory"
	"github.com/chachabrian/rideshare-backend/pkg/utils"
)

func setupAuthService() (*AuthService, *utils.TokenManager) {
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(memory.NewStore(), tokens, zap.NewNop()), tokens
}

func registerInput() RegisterInput {
	return RegisterInput{
		Fullname: "Asha Patil",
		Email:    "Asha@Example.com",
		Password: "secret123",
		Phone:    "9123456780",
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	service, tokens := setupAuthService()

	session, err := service.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if session.User.Email != "asha@example.com" {
		t.Errorf("Expected normalized email, got %s", session.User.Email)
	}
	if session.User.PasswordHash == "" || session.User.Password != "" {
		t.Error("Expected password to be hashed and cleared")
	}
	if session.User.Notifications != models.DefaultPreferences() {
		t.Error("Expected default notification preferences")
	}
	userID, err := tokens.ValidateToken(session.Token)
	if err != nil || userID != session.User.ID {
		t.Errorf("Expected token for %s, got %s (%v)", session.User.ID, userID, err)
	}

	login, err := service.Login(context.Background(), LoginInput{Email: "ASHA@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Errorf("Expected same user, got %s", login.User.ID)
	}

	if _, err := service.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "wrong"}); !apperrors.Is(err, apperrors.Unauthorized) {
		t.Errorf("Expected Unauthorized, got %v", err)
	}
	if _, err := service.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "secret123"}); !apperrors.Is(err, apperrors.Unauthorized) {
		t.Errorf("Expected Unauthorized for unknown email, got %v", err)
	}
}

func TestAuthService_Register_Errors(t *testing.T) {
	service, _ := setupAuthService()
	if _, err := service.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*RegisterInput)
		want   apperrors.Kind
	}{
		{"duplicate email", func(in *RegisterInput) {}, apperrors.Conflict},
		{"short password", func(in *RegisterInput) { in.Email = "b@example.com"; in.Password = "123" }, apperrors.Validation},
		{"bad phone", func(in *RegisterInput) { in.Email = "b@example.com"; in.Phone = "12345" }, apperrors.Validation},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, apperrors.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := registerInput()
			tt.modify(&in)
			if _, err := service.Register(context.Background(), in); !apperrors.Is(err, tt.want) {
				t.Errorf("Expected kind %d, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthService_Preferences(t *testing.T) {
	service, _ := setupAuthService()
	session, err := service.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	off := false
	prefs, err := service.UpdateNotifications(context.Background(), session.User.ID, models.NotificationPreferencesPatch{SMSEnabled: &off})
	if err != nil {
		t.Fatalf("UpdateNotifications failed: %v", err)
	}
	if prefs.SMSEnabled || !prefs.EmailEnabled || !prefs.BookingAlerts {
		t.Errorf("Expected only sms disabled, got %+v", prefs)
	}

	if err := service.RegisterPushToken(context.Background(), session.User.ID, "  "); !apperrors.Is(err, apperrors.Validation) {
		t.Errorf("Expected validation error for blank token, got %v", err)
	}
	if err := service.RegisterPushToken(context.Background(), session.User.ID, "device"); err != nil {
		t.Fatalf("RegisterPushToken failed: %v", err)
	}

	user, err := service.Profile(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if user.PushToken != "device" || user.Notifications.SMSEnabled {
		t.Errorf("Unexpected profile %+v", user)
	}

	if err := service.RemovePushToken(context.Background(), session.User.ID); err != nil {
		t.Fatalf("RemovePushToken failed: %v", err)
	}
	if _, err := service.Profile(context.Background(), "missing"); !apperrors.Is(err, apperrors.NotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}
