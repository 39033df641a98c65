package models

// NotificationPreferences controls which channels a user is reached on when
// one of their booking requests changes. It is stored inline with the user.
type NotificationPreferences struct {
	EmailEnabled  bool `json:"emailEnabled" gorm:"column:email_enabled" bson:"emailEnabled"`
	SMSEnabled    bool `json:"smsEnabled" gorm:"column:sms_enabled" bson:"smsEnabled"`
	PushEnabled   bool `json:"pushEnabled" gorm:"column:push_enabled" bson:"pushEnabled"`
	BookingAlerts bool `json:"bookingAlerts" gorm:"column:booking_alerts" bson:"bookingAlerts"`
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{
		EmailEnabled:  true,
		SMSEnabled:    true,
		PushEnabled:   true,
		BookingAlerts: true,
	}
}

// NotificationPreferencesPatch carries a partial update; nil fields are left alone.
type NotificationPreferencesPatch struct {
	EmailEnabled  *bool `json:"emailEnabled"`
	SMSEnabled    *bool `json:"smsEnabled"`
	PushEnabled   *bool `json:"pushEnabled"`
	BookingAlerts *bool `json:"bookingAlerts"`
}

func (p NotificationPreferences) Apply(patch NotificationPreferencesPatch) NotificationPreferences {
	if patch.EmailEnabled != nil {
		p.EmailEnabled = *patch.EmailEnabled
	}
	if patch.SMSEnabled != nil {
		p.SMSEnabled = *patch.SMSEnabled
	}
	if patch.PushEnabled != nil {
		p.PushEnabled = *patch.PushEnabled
	}
	if patch.BookingAlerts != nil {
		p.BookingAlerts = *patch.BookingAlerts
	}
	return p
}
