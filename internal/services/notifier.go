package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/pkg/utils"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type PushSender interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// EventPublisher delivers a realtime event addressed to one user.
type EventPublisher interface {
	Name() string
	PublishToUser(ctx context.Context, userID string, msg WebSocketMessage) error
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Channels lists the configured delivery channels. A nil sender disables
// its channel.
type Channels struct {
	Email      EmailSender
	SMS        SMSSender
	Push       PushSender
	Publishers []EventPublisher
}

// Outcome is a committed driver decision.
type Outcome struct {
	Request models.BookingRequest
	Ride    models.Ride
}

// Submission is a newly created booking request.
type Submission struct {
	Request models.BookingRequest
	Ride    models.Ride
}

const (
	EventBookingRequestCreated = "booking_request_created"
	EventBookingRequestUpdated = "booking_request_updated"
)

// Dispatcher fans booking events out to every configured channel in the
// background. Delivery is best effort: failures are logged and counted and
// never reach the caller.
type Dispatcher struct {
	users    UserLookup
	channels Channels
	timeout  time.Duration
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(users UserLookup, channels Channels, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		users:    users,
		channels: channels,
		timeout:  timeout,
		log:      log,
	}
}

// RequestResolved notifies the passenger of a driver's decision. It returns
// immediately.
func (d *Dispatcher) RequestResolved(ctx context.Context, out Outcome) {
	d.spawn(ctx, func(ctx context.Context) { d.deliverResolved(ctx, out) })
}

// RequestSubmitted tells the driver about a new request over the realtime
// channels and push.
func (d *Dispatcher) RequestSubmitted(ctx context.Context, sub Submission) {
	d.spawn(ctx, func(ctx context.Context) { d.deliverSubmitted(ctx, sub) })
}

// Wait blocks until every dispatch started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) spawn(parent context.Context, fn func(ctx context.Context)) {
	d.wg.Add(1)
	notificationsInFlight.Inc()
	go func() {
		defer d.wg.Done()
		defer notificationsInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification dispatch panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (d *Dispatcher) deliverResolved(ctx context.Context, out Outcome) {
	req := out.Request
	prefs, pushToken := d.recipient(ctx, req.PassengerID)
	external := prefs.BookingAlerts

	if external && prefs.EmailEnabled && d.channels.Email != nil {
		d.attempt("email", req.ID, func() error {
			subject, body, err := renderStatusEmail(out)
			if err != nil {
				return err
			}
			return d.channels.Email.SendEmail(ctx, req.PassengerEmail, subject, body)
		})
	}

	if external && prefs.SMSEnabled && d.channels.SMS != nil {
		d.attempt("sms", req.ID, func() error {
			return d.channels.SMS.SendSMS(ctx, req.PassengerPhone, statusSMS(out))
		})
	}

	if external && prefs.PushEnabled && pushToken != "" && d.channels.Push != nil {
		d.attempt("push", req.ID, func() error {
			title := "Booking Request Update"
			if req.Status == models.RequestStatusAccepted {
				title = "Booking Confirmed!"
			}
			return d.channels.Push.Push(ctx, pushToken, title, req.DriverMessage, map[string]string{
				"type":      EventBookingRequestUpdated,
				"requestId": req.ID,
				"rideId":    req.RideID,
				"status":    string(req.Status),
			})
		})
	}

	d.publish(ctx, req.PassengerID, req.ID, WebSocketMessage{
		Type: EventBookingRequestUpdated,
		Data: map[string]interface{}{
			"requestId":     req.ID,
			"rideId":        req.RideID,
			"status":        req.Status,
			"driverMessage": req.DriverMessage,
			"seatsBooked":   req.SeatsBooked,
		},
	})
}

func (d *Dispatcher) deliverSubmitted(ctx context.Context, sub Submission) {
	req := sub.Request
	driverID := sub.Ride.UserID

	prefs, pushToken := d.recipient(ctx, driverID)
	if prefs.BookingAlerts && prefs.PushEnabled && pushToken != "" && d.channels.Push != nil {
		d.attempt("push", req.ID, func() error {
			body := fmt.Sprintf("%s requested %d seat(s) from %s to %s", req.PassengerName, req.SeatsBooked, sub.Ride.From, sub.Ride.To)
			return d.channels.Push.Push(ctx, pushToken, "New Booking Request", body, map[string]string{
				"type":      EventBookingRequestCreated,
				"requestId": req.ID,
				"rideId":    req.RideID,
			})
		})
	}

	d.publish(ctx, driverID, req.ID, WebSocketMessage{
		Type: EventBookingRequestCreated,
		Data: map[string]interface{}{
			"requestId":     req.ID,
			"rideId":        req.RideID,
			"passengerName": req.PassengerName,
			"seatsBooked":   req.SeatsBooked,
		},
	})
}

// recipient returns the user's preferences and push token. When the user
// cannot be read every channel stays enabled and push is skipped.
func (d *Dispatcher) recipient(ctx context.Context, userID string) (models.NotificationPreferences, string) {
	if d.users == nil {
		return models.DefaultPreferences(), ""
	}
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		d.log.Warn("could not load notification preferences",
			zap.String("user_id", userID), zap.Error(err))
		return models.DefaultPreferences(), ""
	}
	return user.Notifications, user.PushToken
}

func (d *Dispatcher) publish(ctx context.Context, userID, requestID string, msg WebSocketMessage) {
	for _, p := range d.channels.Publishers {
		p := p
		d.attempt(p.Name(), requestID, func() error {
			return p.PublishToUser(ctx, userID, msg)
		})
	}
}

func (d *Dispatcher) attempt(channel, requestID string, send func() error) {
	if err := send(); err != nil {
		notificationsSent.WithLabelValues(channel, "error").Inc()
		d.log.Error("notification failed",
			zap.String("channel", channel),
			zap.String("request_id", requestID),
			zap.Error(err))
		return
	}
	notificationsSent.WithLabelValues(channel, "sent").Inc()
	d.log.Debug("notification sent",
		zap.String("channel", channel),
		zap.String("request_id", requestID))
}

var statusEmail = template.Must(template.New("status").Parse(`
<div style="background-color: white; padding: 20px; border-radius: 8px;">
	<h1 style="color: #2c3e50; text-align: center;">{{if .Accepted}}Booking Confirmed!{{else}}Booking Status Update{{end}}</h1>
	<p>Dear {{.PassengerName}},</p>
	<p>{{if .Accepted}}Your ride booking request has been accepted! Here are your ride details:{{else}}Your ride booking request has been rejected. Here are the details of the requested ride:{{end}}</p>
	<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
		<h3 style="color: #2c3e50;">Ride Details:</h3>
		<p><strong>From:</strong> {{.From}}</p>
		<p><strong>To:</strong> {{.To}}</p>
		<p><strong>Date:</strong> {{.Date}}</p>
		<p><strong>Time:</strong> {{.Time}}</p>
		<p><strong>Seats Booked:</strong> {{.Seats}}</p>
		<p><strong>Price per Seat:</strong> ₹{{.Price}}</p>
		{{- if .Accepted}}
		<p><strong>Total Amount:</strong> ₹{{.Total}}</p>
		<div style="margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee;">
			<h3 style="color: #2c3e50;">Driver Details:</h3>
			<p><strong>Name:</strong> {{.DriverName}}</p>
			<p><strong>Phone:</strong> {{.DriverPhone}}</p>
			<p><strong>Vehicle:</strong> {{.VehicleType}} - {{.VehicleModel}}</p>
			<p><strong>Vehicle Number:</strong> {{.VehicleNumber}}</p>
		</div>
		{{- end}}
	</div>
	{{- if .DriverMessage}}
	<p><strong>Message from the driver:</strong> {{.DriverMessage}}</p>
	{{- end}}
	{{- if .Accepted}}
	<div style="background-color: #e8f5e9; padding: 15px; border-radius: 8px; margin: 20px 0;">
		<p style="color: #2e7d32; margin: 0;"><strong>Important:</strong> Please arrive at the pickup location 10 minutes before the scheduled time.</p>
	</div>
	{{- else}}
	<div style="background-color: #ffebee; padding: 15px; border-radius: 8px; margin: 20px 0;">
		<p style="color: #c62828; margin: 0;">You can try booking another ride that better suits your needs.</p>
	</div>
	{{- end}}
</div>`))

type statusEmailData struct {
	Accepted      bool
	PassengerName string
	From          string
	To            string
	Date          string
	Time          string
	Seats         int
	Price         string
	Total         string
	DriverName    string
	DriverPhone   string
	VehicleType   string
	VehicleModel  string
	VehicleNumber string
	DriverMessage string
}

func renderStatusEmail(out Outcome) (subject, body string, err error) {
	req, ride := out.Request, out.Ride
	accepted := req.Status == models.RequestStatusAccepted
	fare := utils.CalculateBookingFare(ride.Price, req.SeatsBooked)

	data := statusEmailData{
		Accepted:      accepted,
		PassengerName: req.PassengerName,
		From:          ride.From,
		To:            ride.To,
		Date:          ride.Date.Format("02 Jan 2006"),
		Time:          ride.Time,
		Seats:         req.SeatsBooked,
		Price:         utils.FormatAmount(fare.PricePerSeat),
		Total:         utils.FormatAmount(fare.Total),
		DriverName:    ride.DriverName,
		DriverPhone:   ride.DriverPhone,
		VehicleType:   ride.VehicleType,
		VehicleModel:  ride.VehicleModel,
		VehicleNumber: ride.VehicleNumber,
		DriverMessage: req.DriverMessage,
	}

	var buf bytes.Buffer
	if err := statusEmail.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render status email: %w", err)
	}

	subject = "Your Ride Booking Request Status Update"
	if accepted {
		subject = "Your Ride Booking Has Been Confirmed!"
	}
	return subject, utils.WrapEmail(buf.String()), nil
}

func statusSMS(out Outcome) string {
	req, ride := out.Request, out.Ride
	date := ride.Date.Format("02 Jan 2006")
	if req.Status == models.RequestStatusAccepted {
		return fmt.Sprintf("Your booking request has been ACCEPTED! Ride: %s to %s on %s at %s. Driver: %s (%s)",
			ride.From, ride.To, date, ride.Time, ride.DriverName, ride.DriverPhone)
	}
	return fmt.Sprintf("Your booking request has been REJECTED. Ride: %s to %s on %s at %s.",
		ride.From, ride.To, date, ride.Time)
}
