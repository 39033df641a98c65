package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID            string                  `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Fullname      string                  `json:"fullname" gorm:"not null" bson:"fullname"`
	Email         string                  `json:"email" gorm:"uniqueIndex;not null" bson:"email"`
	Password      string                  `json:"-" gorm:"-" bson:"-"` // plain text, only set while registering
	PasswordHash  string                  `json:"-" gorm:"column:password_hash;not null" bson:"passwordHash"`
	Phone         string                  `json:"phone" gorm:"not null" bson:"phone"`
	PushToken     string                  `json:"-" gorm:"column:push_token" bson:"pushToken,omitempty"`
	Notifications NotificationPreferences `json:"notifications" gorm:"embedded;embeddedPrefix:notify_" bson:"notifications"`
	CreatedAt     time.Time               `json:"createdAt" bson:"createdAt"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	u.Password = ""
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
