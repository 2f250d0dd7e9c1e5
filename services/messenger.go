// services/messenger.go
package services

import (
	"context"
	"errors"
	"fmt"

	"voltflow-backend/config"
	"voltflow-backend/logger"
	"voltflow-backend/metrics"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Messenger sends one SMS
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioMessenger sends SMS from the assistant's Twilio number
type TwilioMessenger struct {
	api  messageCreator
	from string
}

func NewTwilioMessenger(cfg config.TwilioConfig) *TwilioMessenger {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioMessenger{api: client.Api, from: cfg.PhoneNumber}
}

// Send does not retry; a failed send is returned to the caller as is.
// The SDK call does not accept a context.
func (m *TwilioMessenger) Send(_ context.Context, to, body string) error {
	if m.from == "" {
		return errors.New("TWILIO_PHONE_NUMBER not set")
	}
	if to == "" {
		return errors.New("recipient number is empty")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(m.from)
	params.SetBody(body)

	resp, err := m.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	if resp != nil && resp.Sid != nil {
		logger.Debug("SMS sent", zap.String("to", to), zap.String("sid", *resp.Sid))
	}
	return nil
}

// ConsoleMessenger logs messages instead of sending them, for local runs
type ConsoleMessenger struct{}

func (ConsoleMessenger) Send(_ context.Context, to, body string) error {
	logger.Info("SMS (console)", zap.String("to", to), zap.String("body", body))
	return nil
}

// NewMessenger picks the configured provider
func NewMessenger(cfg config.TwilioConfig) Messenger {
	if cfg.Provider == "console" {
		return ConsoleMessenger{}
	}
	return NewTwilioMessenger(cfg)
}

const (
	kindCustomer = "customer"
	kindTradie   = "tradie"
)

func deliver(ctx context.Context, m Messenger, kind, to, body string) error {
	err := m.Send(ctx, to, body)
	metrics.RecordOutbound(kind, err)
	return err
}

// notifyTradie is skipped, not failed, when no tradie number is configured
func notifyTradie(ctx context.Context, m Messenger, tradiePhone, body string) error {
	if tradiePhone == "" {
		logger.Warn("TRADIE_PHONE_NUMBER not set, skipping tradie notification")
		return nil
	}
	return deliver(ctx, m, kindTradie, tradiePhone, body)
}
