package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelLog   = "log"
)

var errNoAddress = errors.New("customer has no address for this channel")

// Contact is where a notice is delivered.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Sender delivers one message over one channel.
type Sender interface {
	Channel() string
	CanReach(to Contact) bool
	Send(ctx context.Context, to Contact, subject, message string) error
}

// SendGridSender delivers notices as plain-text email.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridSender(apiKey, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (s *SendGridSender) Channel() string { return ChannelEmail }

func (s *SendGridSender) CanReach(to Contact) bool { return to.Email != "" }

func (s *SendGridSender) Send(ctx context.Context, to Contact, subject, message string) error {
	if !s.CanReach(to) {
		return errNoAddress
	}

	email := mail.NewSingleEmail(s.from, subject, mail.NewEmail(to.Name, to.Email), message, "")
	response, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", to.Email, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// TwilioSender delivers notices as SMS.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSID,
		Password:   authToken,
		AccountSid: accountSID,
	})
	return &TwilioSender{client: client, from: fromNumber}
}

func (s *TwilioSender) Channel() string { return ChannelSMS }

func (s *TwilioSender) CanReach(to Contact) bool { return to.Phone != "" }

func (s *TwilioSender) Send(_ context.Context, to Contact, _ string, message string) error {
	if !s.CanReach(to) {
		return errNoAddress
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to.Phone)
	params.SetFrom(s.from)
	params.SetBody(message)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", to.Phone, err)
	}
	return nil
}

// LogSender writes notices to the info log. It reaches everyone.
type LogSender struct{}

func (LogSender) Channel() string { return ChannelLog }

func (LogSender) CanReach(Contact) bool { return true }

func (LogSender) Send(_ context.Context, to Contact, subject, message string) error {
	utils.InfoLogger.Printf("Notification for %s: [%s] %s", to.Name, subject, message)
	return nil
}
