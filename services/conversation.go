// services/conversation.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voltflow-backend/config"
	"voltflow-backend/logger"
	"voltflow-backend/metrics"
	"voltflow-backend/models"
	"voltflow-backend/utils"

	"go.uber.org/zap"
)

// loggedReplyLength caps generated replies in the message log
const loggedReplyLength = 500

const nameRequestMessage = "Hi! To help with your request, could you please reply with your full name?"

type Action int

const (
	ActionIgnoreLowIntent Action = iota
	ActionSendIntro
	ActionRequestName
	ActionConfirmBooking
	ActionDelegateToGenerator
)

func (a Action) String() string {
	switch a {
	case ActionIgnoreLowIntent:
		return "ignore_low_intent"
	case ActionSendIntro:
		return "send_intro"
	case ActionRequestName:
		return "request_name"
	case ActionConfirmBooking:
		return "confirm_booking"
	case ActionDelegateToGenerator:
		return "delegate_to_generator"
	default:
		return "unknown"
	}
}

// ConversationState is everything Resolve looks at. Customer is nil for a
// phone that has never been seen.
type ConversationState struct {
	Text             string
	Customer         *models.Customer
	Now              time.Time
	ReintroduceAfter time.Duration
}

// Decision is what to do with one inbound message. Name is the customer name
// to address; CaptureName means Name came from this message and must be stored.
type Decision struct {
	Action      Action
	Name        string
	CaptureName bool
}

// Resolve walks the guards in priority order; the first match wins.
func Resolve(state ConversationState) Decision {
	text := strings.TrimSpace(state.Text)
	customer := state.Customer

	if utils.IsLowIntent(text) {
		return Decision{Action: ActionIgnoreLowIntent}
	}
	if needsIntro(customer, state.Now, state.ReintroduceAfter) {
		return Decision{Action: ActionSendIntro}
	}
	if !customer.HasName() && utils.LooksLikeName(text) {
		return Decision{Action: ActionConfirmBooking, Name: text, CaptureName: true}
	}

	booking := utils.Classify(text).IsBookingRequest()
	switch {
	case booking && !customer.HasName():
		return Decision{Action: ActionRequestName}
	case booking:
		return Decision{Action: ActionConfirmBooking, Name: customer.Name}
	default:
		return Decision{Action: ActionDelegateToGenerator}
	}
}

func needsIntro(customer *models.Customer, now time.Time, after time.Duration) bool {
	if customer == nil || !customer.WasIntroduced {
		return true
	}
	days := int(after / (24 * time.Hour))
	return days > 0 && utils.DaysBetween(customer.LastIntroduced(), now) >= days
}

type replyGenerator interface {
	Reply(ctx context.Context, phone, text string) (string, error)
}

// ConversationService handles inbound SMS for the assistant
type ConversationService struct {
	store     Store
	messenger Messenger
	generator replyGenerator
	business  config.BusinessConfig
	now       func() time.Time
}

func NewConversationService(store Store, messenger Messenger, generator replyGenerator, business config.BusinessConfig) *ConversationService {
	return &ConversationService{
		store:     store,
		messenger: messenger,
		generator: generator,
		business:  business,
		now:       time.Now,
	}
}

// HandleInbound resolves and executes the reply to one inbound SMS. Customer
// state is written before anything is sent, and the message log row is
// written only after the customer reply went out.
func (s *ConversationService) HandleInbound(ctx context.Context, from, body string) (Decision, error) {
	phone := utils.NormalizePhone(from, s.business.CallingCode)
	text := strings.TrimSpace(body)

	customer, err := s.store.GetCustomerByPhone(ctx, phone)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Decision{}, err
	}

	now := s.now()
	decision := Resolve(ConversationState{
		Text:             text,
		Customer:         customer,
		Now:              now,
		ReintroduceAfter: s.business.ReintroduceAfter,
	})
	metrics.RecordDecision(decision.Action.String())

	switch decision.Action {
	case ActionIgnoreLowIntent:
		logger.Info("Low intent message ignored", zap.String("from", phone), zap.String("body", text))
		return decision, nil
	case ActionSendIntro:
		err = s.sendIntro(ctx, phone, body, customer, now)
	case ActionRequestName:
		err = s.reply(ctx, phone, body, nameRequestMessage)
	case ActionConfirmBooking:
		err = s.confirmBooking(ctx, phone, body, customer, decision)
	case ActionDelegateToGenerator:
		err = s.delegate(ctx, phone, body, text)
	}
	if err != nil {
		return decision, err
	}

	logger.Info("SMS handled",
		zap.String("from", phone),
		zap.String("action", decision.Action.String()),
	)
	return decision, nil
}

func (s *ConversationService) sendIntro(ctx context.Context, phone, body string, customer *models.Customer, now time.Time) error {
	if err := MarkIntroduced(ctx, s.store, phone, customer, now); err != nil {
		return err
	}
	return s.reply(ctx, phone, body, s.introMessage())
}

func (s *ConversationService) confirmBooking(ctx context.Context, phone, body string, customer *models.Customer, d Decision) error {
	confirmation := fmt.Sprintf("Thanks for your request, %s! The %s will call you back at %s. Cheers!",
		d.Name, TradeNickname(s.business.TradeCategory), s.business.CallbackTime)

	if d.CaptureName {
		updated := models.Customer{Phone: phone}
		if customer != nil {
			updated = *customer
		}
		updated.Name = d.Name
		if err := s.store.SaveCustomer(ctx, &updated); err != nil {
			return err
		}
		confirmation = fmt.Sprintf("Thanks for booking, %s! The %s will call you back at %s. Cheers!",
			d.Name, TradeNickname(s.business.TradeCategory), s.business.CallbackTime)
	}

	if err := s.reply(ctx, phone, body, confirmation); err != nil {
		return err
	}

	notice := fmt.Sprintf("⚡️ New request from %s (%s): \"%s\". Will call back at %s.",
		d.Name, phone, body, s.business.CallbackTime)
	if err := notifyTradie(ctx, s.messenger, s.business.TradiePhone, notice); err != nil {
		return fmt.Errorf("notify tradie: %w", err)
	}
	return nil
}

func (s *ConversationService) delegate(ctx context.Context, phone, body, text string) error {
	answer, err := s.generator.Reply(ctx, phone, text)
	if err != nil {
		return err
	}
	if err := deliver(ctx, s.messenger, kindCustomer, phone, answer); err != nil {
		return err
	}
	_, err = s.store.LogMessage(ctx, phone, models.Truncate(body, loggedReplyLength), models.Truncate(answer, loggedReplyLength))
	return err
}

// reply sends outgoing to the customer and then logs the exchange
func (s *ConversationService) reply(ctx context.Context, phone, incoming, outgoing string) error {
	if err := deliver(ctx, s.messenger, kindCustomer, phone, outgoing); err != nil {
		return err
	}
	_, err := s.store.LogMessage(ctx, phone, models.Truncate(incoming, loggedReplyLength), outgoing)
	return err
}

func (s *ConversationService) introMessage() string {
	if s.business.IntroMessage != "" {
		return s.business.IntroMessage
	}
	return config.DefaultIntroMessage
}

// MarkIntroduced records that phone has just been sent the intro, keeping any
// stored name.
func MarkIntroduced(ctx context.Context, store Store, phone string, customer *models.Customer, now time.Time) error {
	updated := models.Customer{Phone: phone}
	if customer != nil {
		updated = *customer
	}
	at := now.UTC()
	updated.WasIntroduced = true
	updated.IntroducedAt = &at
	return store.SaveCustomer(ctx, &updated)
}

// TradeNickname is how replies refer to the tradie
func TradeNickname(category string) string {
	switch strings.ToLower(category) {
	case "electrician":
		return "sparkie"
	case "plumber":
		return "plumber"
	case "carpenter":
		return "chippie"
	default:
		return "tradie"
	}
}
