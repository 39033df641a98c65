package utils

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
)

const africasTalkingURL = "https://api.africastalking.com/version1/messaging"

// AfricasTalkingSender posts SMS through the Africa's Talking messaging API.
type AfricasTalkingSender struct {
	username string
	apiKey   string
	baseURL  string
	client   *http.Client
}

func NewAfricasTalkingSender(username, apiKey string) *AfricasTalkingSender {
	return &AfricasTalkingSender{
		username: username,
		apiKey:   apiKey,
		baseURL:  africasTalkingURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *AfricasTalkingSender) SendSMS(ctx context.Context, to, body string) error {
	if s.username == "" {
		return fmt.Errorf("africa's talking username not set")
	}
	if s.apiKey == "" {
		return fmt.Errorf("africa's talking API key not set")
	}

	data := url.Values{}
	data.Set("username", s.username)
	data.Set("to", to)
	data.Set("message", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apiKey", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send SMS: status code %d", resp.StatusCode)
	}
	return nil
}

// SNSSender publishes SMS directly to a phone number through Amazon SNS.
type SNSSender struct {
	client   *sns.SNS
	senderID string
}

func NewSNSSender(sess *session.Session, senderID string) *SNSSender {
	return &SNSSender{client: sns.New(sess), senderID: senderID}
}

func (s *SNSSender) SendSMS(ctx context.Context, to, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}
	if _, err := s.client.PublishWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to send SMS via SNS: %w", err)
	}
	return nil
}
