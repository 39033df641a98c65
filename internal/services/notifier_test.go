package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository/memory"
)

type sent struct {
	channel string
	to      string
	subject string
	body    string
}

type fakeChannel struct {
	mu   sync.Mutex
	name string
	fail bool
	got  []sent
}

func (f *fakeChannel) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, s)
	if f.fail {
		return errors.New(f.name + " unavailable")
	}
	return nil
}

func (f *fakeChannel) SendEmail(ctx context.Context, to, subject, html string) error {
	return f.record(sent{channel: "email", to: to, subject: subject, body: html})
}

func (f *fakeChannel) SendSMS(ctx context.Context, to, body string) error {
	return f.record(sent{channel: "sms", to: to, body: body})
}

func (f *fakeChannel) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	return f.record(sent{channel: "push", to: token, subject: title, body: body})
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) PublishToUser(ctx context.Context, userID string, msg WebSocketMessage) error {
	return f.record(sent{channel: f.name, to: userID, subject: msg.Type})
}

func (f *fakeChannel) calls() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.got...)
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	store      *memory.Store
	email      *fakeChannel
	sms        *fakeChannel
	push       *fakeChannel
	realtime   *fakeChannel
}

func setupDispatcher(t *testing.T, prefs models.NotificationPreferences, failing bool) *dispatcherFixture {
	t.Helper()
	store := memory.NewStore()
	user := &models.User{
		ID:            "passenger-1",
		Fullname:      "Asha",
		Email:         "asha@example.com",
		Phone:         "9123456780",
		PushToken:     "device-token",
		Notifications: prefs,
		CreatedAt:     time.Now(),
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	f := &dispatcherFixture{
		store:    store,
		email:    &fakeChannel{name: "email", fail: failing},
		sms:      &fakeChannel{name: "sms", fail: failing},
		push:     &fakeChannel{name: "push", fail: failing},
		realtime: &fakeChannel{name: "websocket", fail: failing},
	}
	f.dispatcher = NewDispatcher(store, Channels{
		Email:      f.email,
		SMS:        f.sms,
		Push:       f.push,
		Publishers: []EventPublisher{f.realtime},
	}, time.Second, zap.NewNop())
	return f
}

func acceptedOutcome() Outcome {
	return Outcome{
		Request: models.BookingRequest{
			ID:             "req-1",
			RideID:         "ride-1",
			PassengerID:    "passenger-1",
			PassengerName:  "Asha",
			PassengerPhone: "9123456780",
			PassengerEmail: "asha@example.com",
			SeatsBooked:    2,
			Status:         models.RequestStatusAccepted,
			DriverMessage:  "Your booking request has been accepted!",
		},
		Ride: models.Ride{
			ID:            "ride-1",
			UserID:        "driver-1",
			From:          "Pune",
			To:            "Mumbai",
			Date:          time.Date(2030, 5, 1, 9, 0, 0, 0, time.Local),
			Time:          "09:00",
			Price:         250,
			DriverName:    "Ravi",
			DriverPhone:   "9876543210",
			VehicleType:   "Sedan",
			VehicleModel:  "Dzire",
			VehicleNumber: "MH12AB1234",
		},
	}
}

func TestDispatcher_RequestResolved_AllChannels(t *testing.T) {
	f := setupDispatcher(t, models.DefaultPreferences(), false)

	f.dispatcher.RequestResolved(context.Background(), acceptedOutcome())
	f.dispatcher.Wait()

	emails := f.email.calls()
	if len(emails) != 1 {
		t.Fatalf("Expected 1 email, got %d", len(emails))
	}
	if emails[0].to != "asha@example.com" || emails[0].subject != "Your Ride Booking Has Been Confirmed!" {
		t.Errorf("Unexpected email %+v", emails[0])
	}
	if !strings.Contains(emails[0].body, "500.00") {
		t.Error("Expected total amount in email body")
	}

	texts := f.sms.calls()
	if len(texts) != 1 || !strings.Contains(texts[0].body, "ACCEPTED") || texts[0].to != "9123456780" {
		t.Errorf("Unexpected sms %+v", texts)
	}
	pushes := f.push.calls()
	if len(pushes) != 1 || pushes[0].to != "device-token" || pushes[0].subject != "Booking Confirmed!" {
		t.Errorf("Unexpected push %+v", pushes)
	}
	events := f.realtime.calls()
	if len(events) != 1 || events[0].to != "passenger-1" || events[0].subject != EventBookingRequestUpdated {
		t.Errorf("Unexpected realtime events %+v", events)
	}
}

func TestDispatcher_RequestResolved_Preferences(t *testing.T) {
	tests := []struct {
		name     string
		prefs    models.NotificationPreferences
		email    int
		sms      int
		push     int
		realtime int
	}{
		{"email only", models.NotificationPreferences{EmailEnabled: true, BookingAlerts: true}, 1, 0, 0, 1},
		{"sms and push", models.NotificationPreferences{SMSEnabled: true, PushEnabled: true, BookingAlerts: true}, 0, 1, 1, 1},
		{"alerts off", models.NotificationPreferences{EmailEnabled: true, SMSEnabled: true, PushEnabled: true}, 0, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupDispatcher(t, tt.prefs, false)
			f.dispatcher.RequestResolved(context.Background(), acceptedOutcome())
			f.dispatcher.Wait()

			if got := len(f.email.calls()); got != tt.email {
				t.Errorf("Expected %d emails, got %d", tt.email, got)
			}
			if got := len(f.sms.calls()); got != tt.sms {
				t.Errorf("Expected %d sms, got %d", tt.sms, got)
			}
			if got := len(f.push.calls()); got != tt.push {
				t.Errorf("Expected %d pushes, got %d", tt.push, got)
			}
			if got := len(f.realtime.calls()); got != tt.realtime {
				t.Errorf("Expected %d realtime events, got %d", tt.realtime, got)
			}
		})
	}
}

func TestDispatcher_FailuresAreContained(t *testing.T) {
	f := setupDispatcher(t, models.DefaultPreferences(), true)

	f.dispatcher.RequestResolved(context.Background(), acceptedOutcome())
	f.dispatcher.Wait()

	// Every channel is still attempted after the others fail.
	for _, ch := range []*fakeChannel{f.email, f.sms, f.push, f.realtime} {
		if len(ch.calls()) != 1 {
			t.Errorf("Expected %s to be attempted once, got %d", ch.name, len(ch.calls()))
		}
	}
}

func TestDispatcher_CancelledCallerContext(t *testing.T) {
	f := setupDispatcher(t, models.DefaultPreferences(), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.dispatcher.RequestResolved(ctx, acceptedOutcome())
	f.dispatcher.Wait()

	if len(f.email.calls()) != 1 {
		t.Error("Expected delivery to outlive the request context")
	}
}

func TestDispatcher_UnknownUserSkipsPush(t *testing.T) {
	f := setupDispatcher(t, models.DefaultPreferences(), false)
	out := acceptedOutcome()
	out.Request.PassengerID = "someone-else"

	f.dispatcher.RequestResolved(context.Background(), out)
	f.dispatcher.Wait()

	if len(f.email.calls()) != 1 || len(f.sms.calls()) != 1 {
		t.Error("Expected email and sms with default preferences")
	}
	if len(f.push.calls()) != 0 {
		t.Error("Expected push to be skipped without a token")
	}
}

func TestDispatcher_RequestSubmitted(t *testing.T) {
	f := setupDispatcher(t, models.DefaultPreferences(), false)
	driver := &models.User{
		ID: "driver-1", Email: "ravi@example.com", PushToken: "driver-token",
		Notifications: models.DefaultPreferences(),
	}
	if err := f.store.CreateUser(context.Background(), driver); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	out := acceptedOutcome()
	out.Request.Status = models.RequestStatusPending
	f.dispatcher.RequestSubmitted(context.Background(), Submission{Request: out.Request, Ride: out.Ride})
	f.dispatcher.Wait()

	if len(f.email.calls()) != 0 || len(f.sms.calls()) != 0 {
		t.Error("Expected no email or sms for a new request")
	}
	pushes := f.push.calls()
	if len(pushes) != 1 || pushes[0].to != "driver-token" || !strings.Contains(pushes[0].body, "Pune to Mumbai") {
		t.Errorf("Unexpected push %+v", pushes)
	}
	events := f.realtime.calls()
	if len(events) != 1 || events[0].to != "driver-1" || events[0].subject != EventBookingRequestCreated {
		t.Errorf("Unexpected realtime events %+v", events)
	}
}

func TestRenderStatusEmail_Rejected(t *testing.T) {
	out := acceptedOutcome()
	out.Request.Status = models.RequestStatusRejected
	out.Request.DriverMessage = "Sorry, full"

	subject, body, err := renderStatusEmail(out)
	if err != nil {
		t.Fatalf("renderStatusEmail failed: %v", err)
	}
	if subject != "Your Ride Booking Request Status Update" {
		t.Errorf("Unexpected subject %q", subject)
	}
	if strings.Contains(body, "Driver Details") {
		t.Error("Expected driver details to be left out of a rejection")
	}
	if !strings.Contains(body, "Sorry, full") {
		t.Error("Expected driver message in body")
	}
	if !strings.Contains(statusSMS(out), "REJECTED") {
		t.Error("Expected rejection sms text")
	}
}
