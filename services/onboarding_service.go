// services/onboarding_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"voltflow-backend/config"
	"voltflow-backend/logger"
	"voltflow-backend/models"
	"voltflow-backend/utils"

	"go.uber.org/zap"
)

var (
	ErrMissingFields          = errors.New("missing required fields")
	ErrAssistantNumberMissing = errors.New("assistant number not configured")
	ErrInvalidPhone           = errors.New("invalid phone number")
)

type RegisterInput struct {
	Name     string
	Business string
	Email    string
	Phone    string
}

type Registration struct {
	Tradie       *models.Tradie
	DashboardURL string
}

// OnboardingService signs up tradies and sends them the setup texts
type OnboardingService struct {
	store           Store
	messenger       Messenger
	assistantNumber string
	callingCode     string
	baseURL         string
	dashboard       config.DashboardConfig
}

func NewOnboardingService(store Store, messenger Messenger, cfg *config.Config) *OnboardingService {
	return &OnboardingService{
		store:           store,
		messenger:       messenger,
		assistantNumber: cfg.Twilio.PhoneNumber,
		callingCode:     cfg.Business.CallingCode,
		baseURL:         cfg.App.BaseURL,
		dashboard:       cfg.Dashboard,
	}
}

func (s *OnboardingService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Business = strings.TrimSpace(in.Business)
	in.Email = strings.TrimSpace(in.Email)
	phone := utils.NormalizeRegistrationPhone(in.Phone, s.callingCode)
	if in.Name == "" || in.Business == "" || in.Email == "" || phone == "" {
		return nil, ErrMissingFields
	}
	if !utils.ValidatePhone(phone) {
		return nil, ErrInvalidPhone
	}
	if s.assistantNumber == "" {
		return nil, ErrAssistantNumberMissing
	}

	tradie := &models.Tradie{
		Name:     in.Name,
		Business: in.Business,
		Email:    in.Email,
		Phone:    phone,
	}
	if err := s.store.CreateTradie(ctx, tradie); err != nil {
		return nil, err
	}
	logger.Info("Registered tradie", zap.String("name", tradie.Name), zap.String("phone", phone))

	for i, body := range s.onboardingMessages(tradie.Name) {
		if err := deliver(ctx, s.messenger, kindTradie, phone, body); err != nil {
			return nil, fmt.Errorf("onboarding sms %d: %w", i+1, err)
		}
	}

	dashboardURL, err := s.DashboardURL(phone)
	if err != nil {
		return nil, err
	}
	return &Registration{Tradie: tradie, DashboardURL: dashboardURL}, nil
}

// DashboardURL links to the history view for phone, signed when a
// dashboard secret is configured
func (s *OnboardingService) DashboardURL(phone string) (string, error) {
	q := url.Values{}
	q.Set("phone", phone)
	if s.dashboard.Secret != "" {
		token, err := utils.GenerateDashboardToken(phone, s.dashboard.Secret, s.dashboard.TokenTTL)
		if err != nil {
			return "", fmt.Errorf("sign dashboard link: %w", err)
		}
		q.Set("token", token)
	}
	return s.baseURL + "/dashboard/view?" + q.Encode(), nil
}

func (s *OnboardingService) onboardingMessages(name string) []string {
	return []string{
		fmt.Sprintf("⚡️Hi %s, I am your very own 24/7✅ assistant that never sleeps. Your AI admin is now active.", name),
		fmt.Sprintf("📲 Please forward your main mobile number to this AI number (%s) so we can handle missed calls for you.", s.assistantNumber),
		`Tip: Set forwarding to "When Busy" or "When Unanswered" so we only step in when you're away. You're all set ⚡️`,
	}
}
