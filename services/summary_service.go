// services/summary_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voltflow-backend/config"
	"voltflow-backend/logger"
	"voltflow-backend/metrics"
	"voltflow-backend/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	summaryHeader  = "📋 Today's booking requests:\n"
	unknownName    = "Unknown"
	summaryTimeout = 2 * time.Minute
)

// SummaryService texts the tradie a digest of the day's booking requests
type SummaryService struct {
	store       Store
	messenger   Messenger
	tradiePhone string
	schedule    string
	keywords    []string
	loc         *time.Location
	cron        *cron.Cron
}

func NewSummaryService(store Store, messenger Messenger, cfg *config.Config) (*SummaryService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("summary timezone: %w", err)
	}
	return &SummaryService{
		store:       store,
		messenger:   messenger,
		tradiePhone: cfg.Business.TradiePhone,
		schedule:    cfg.Summary.Schedule,
		keywords:    cfg.Summary.Keywords,
		loc:         loc,
	}, nil
}

// StartScheduler runs SendDailySummary on the configured schedule in the
// configured timezone
func (s *SummaryService) StartScheduler() error {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid summary schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	logger.Info("Daily summary scheduler started",
		zap.String("schedule", s.schedule),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop waits for a running summary to finish
func (s *SummaryService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	logger.Info("Daily summary scheduler stopped")
}

func (s *SummaryService) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	if _, err := s.SendDailySummary(ctx, time.Now()); err != nil {
		logger.Error("Daily summary failed", zap.Error(err))
	}
}

// SendDailySummary sends the summary for now's local day. It reports whether
// anything was sent; an empty day sends nothing.
func (s *SummaryService) SendDailySummary(ctx context.Context, now time.Time) (bool, error) {
	summary, err := s.BuildSummary(ctx, now)
	if err != nil {
		metrics.RecordSummary("error")
		return false, err
	}
	if summary == "" {
		metrics.RecordSummary("empty")
		logger.Info("No booking requests today")
		return false, nil
	}
	if s.tradiePhone == "" {
		metrics.RecordSummary("error")
		return false, fmt.Errorf("TRADIE_PHONE_NUMBER not set")
	}

	if err := deliver(ctx, s.messenger, kindTradie, s.tradiePhone, summaryHeader+summary); err != nil {
		metrics.RecordSummary("error")
		return false, fmt.Errorf("send daily summary: %w", err)
	}
	metrics.RecordSummary("sent")
	logger.Info("Daily summary sent", zap.String("to", s.tradiePhone))
	return true, nil
}

// BuildSummary lists the booking-like messages logged during now's calendar
// day in the summary timezone, oldest first. It returns "" when there are none.
func (s *SummaryService) BuildSummary(ctx context.Context, now time.Time) (string, error) {
	local := now.In(s.loc)
	msgs, err := s.store.MessagesBetween(ctx, utils.BeginningOfDay(local), utils.EndOfDay(local))
	if err != nil {
		return "", err
	}

	var phones []string
	seen := make(map[string]bool)
	matched := msgs[:0]
	for _, m := range msgs {
		if !utils.ContainsAnyKeyword(m.Incoming, s.keywords) {
			continue
		}
		matched = append(matched, m)
		if !seen[m.Phone] {
			seen[m.Phone] = true
			phones = append(phones, m.Phone)
		}
	}
	if len(matched) == 0 {
		return "", nil
	}

	names, err := s.store.CustomerNames(ctx, phones)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(matched))
	for _, m := range matched {
		name := names[m.Phone]
		if name == "" {
			name = unknownName
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): \"%s\" at %s",
			name, m.Phone, strings.TrimSpace(m.Incoming), m.CreatedAt.In(s.loc).Format("3:04 PM")))
	}
	return strings.Join(lines, "\n"), nil
}
