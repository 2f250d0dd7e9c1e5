// services/missed_call_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voltflow-backend/config"
	"voltflow-backend/logger"
	"voltflow-backend/utils"

	"go.uber.org/zap"
)

const (
	introSuppressWindow  = 15 * time.Minute
	missedCallLogMessage = "Missed call auto-reply"
)

type MissedCallResult int

const (
	MissedCallIgnored MissedCallResult = iota // call status needs no reply
	MissedCallReplied
	MissedCallSuppressed // intro went out less than introSuppressWindow ago
)

// MissedCallService texts the intro to callers the tradie could not answer
type MissedCallService struct {
	store     Store
	messenger Messenger
	business  config.BusinessConfig
	now       func() time.Time
}

func NewMissedCallService(store Store, messenger Messenger, business config.BusinessConfig) *MissedCallService {
	return &MissedCallService{store: store, messenger: messenger, business: business, now: time.Now}
}

// HandleCallStatus acts on "no-answer" and "busy" only
func (s *MissedCallService) HandleCallStatus(ctx context.Context, status, from string) (MissedCallResult, error) {
	if status != "no-answer" && status != "busy" {
		return MissedCallIgnored, nil
	}

	phone := utils.NormalizePhone(from, s.business.CallingCode)
	intro := s.introMessage()
	now := s.now()

	last, err := s.store.LastMessage(ctx, phone)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return MissedCallIgnored, err
	case last.Outgoing == intro && now.Sub(last.CreatedAt) < introSuppressWindow:
		logger.Info("Intro recently sent, skipping missed call reply", zap.String("from", phone))
		return MissedCallSuppressed, nil
	}

	customer, err := s.store.GetCustomerByPhone(ctx, phone)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return MissedCallIgnored, err
	}
	if err := MarkIntroduced(ctx, s.store, phone, customer, now); err != nil {
		return MissedCallIgnored, err
	}

	if err := deliver(ctx, s.messenger, kindCustomer, phone, intro); err != nil {
		return MissedCallIgnored, err
	}
	notice := fmt.Sprintf("⚠️ Missed call from %s. Auto-reply sent.", phone)
	if err := notifyTradie(ctx, s.messenger, s.business.TradiePhone, notice); err != nil {
		return MissedCallIgnored, fmt.Errorf("notify tradie: %w", err)
	}
	if _, err := s.store.LogMessage(ctx, phone, missedCallLogMessage, intro); err != nil {
		return MissedCallIgnored, err
	}

	logger.Info("Missed call intro sent", zap.String("from", phone), zap.String("status", status))
	return MissedCallReplied, nil
}

func (s *MissedCallService) introMessage() string {
	if s.business.IntroMessage != "" {
		return s.business.IntroMessage
	}
	return config.DefaultIntroMessage
}
