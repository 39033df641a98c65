package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository"
	"github.com/chachabrian/rideshare-backend/internal/validation"
)

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	log    *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type RegisterInput struct {
	Fullname string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required,emailshape"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"required,phone10"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is a signed token together with the user it was issued to.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.New(apperrors.Conflict, "User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to check existing user", err)
	}

	user := &models.User{
		ID:            s.newID(),
		Fullname:      in.Fullname,
		Email:         in.Email,
		Password:      in.Password,
		Phone:         in.Phone,
		Notifications: models.DefaultPreferences(),
		CreatedAt:     s.now(),
	}
	if err := user.HashPassword(); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to hash password", err)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.Conflict, "User already exists")
		}
		return nil, apperrors.Wrap(apperrors.Internal, "failed to create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.Unauthorized, "Invalid credentials")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to load user", err)
	}
	if err := user.CheckPassword(in.Password); err != nil {
		return nil, apperrors.New(apperrors.Unauthorized, "Invalid credentials")
	}
	return s.session(user)
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User")
	}
	return user, nil
}

func (s *AuthService) UpdateNotifications(ctx context.Context, userID string, patch models.NotificationPreferencesPatch) (models.NotificationPreferences, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.NotificationPreferences{}, storeError(err, "User")
	}
	prefs := user.Notifications.Apply(patch)
	if err := s.users.UpdateNotificationPreferences(ctx, userID, prefs); err != nil {
		return models.NotificationPreferences{}, storeError(err, "User")
	}
	return prefs, nil
}

func (s *AuthService) RegisterPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.Invalid("Token is required", apperrors.Detail{Field: "token", Message: "token is required"})
	}
	if err := s.users.SetPushToken(ctx, userID, token); err != nil {
		return storeError(err, "User")
	}
	return nil
}

func (s *AuthService) RemovePushToken(ctx context.Context, userID string) error {
	if err := s.users.SetPushToken(ctx, userID, ""); err != nil {
		return storeError(err, "User")
	}
	return nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to generate token", err)
	}
	return &Session{Token: token, User: user}, nil
}
