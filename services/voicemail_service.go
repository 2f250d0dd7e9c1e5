// services/voicemail_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voltflow-backend/config"
	"voltflow-backend/logger"
	"voltflow-backend/models"
	"voltflow-backend/utils"

	"go.uber.org/zap"
)

const transcriptionUnavailable = "[Transcription unavailable]"

var (
	// ErrNoReply means the generator produced nothing to send
	ErrNoReply = errors.New("no AI reply generated")
	// ErrReplyFailed wraps a failed completion request
	ErrReplyFailed = errors.New("voicemail reply failed")
)

// VoicemailInput is the recording callback from the voice provider
type VoicemailInput struct {
	From              string
	RecordingURL      string
	TranscriptionText string
}

type voicemailResponder interface {
	VoicemailReply(ctx context.Context, transcript string) (string, error)
}

type VoicemailService struct {
	store       Store
	messenger   Messenger
	responder   voicemailResponder
	transcriber Transcriber // nil disables local transcription
	business    config.BusinessConfig
	now         func() time.Time
}

func NewVoicemailService(store Store, messenger Messenger, responder voicemailResponder, transcriber Transcriber, business config.BusinessConfig) *VoicemailService {
	return &VoicemailService{
		store:       store,
		messenger:   messenger,
		responder:   responder,
		transcriber: transcriber,
		business:    business,
		now:         time.Now,
	}
}

// Process answers a voicemail by SMS, tells the tradie about it and keeps a
// record. It returns ErrNoReply when there was nothing to send back.
func (s *VoicemailService) Process(ctx context.Context, in VoicemailInput) (*models.Voicemail, error) {
	phone := utils.NormalizePhone(in.From, s.business.CallingCode)
	recordingURL := ""
	if in.RecordingURL != "" {
		recordingURL = in.RecordingURL + ".mp3"
	}

	transcript := s.transcript(ctx, recordingURL, in.TranscriptionText)
	logger.Info("Voicemail received",
		zap.String("from", phone),
		zap.String("recording_url", recordingURL),
		zap.String("transcription", transcript),
	)

	customer, err := s.store.GetCustomerByPhone(ctx, phone)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if now := s.now(); needsIntro(customer, now, s.business.ReintroduceAfter) {
		if err := MarkIntroduced(ctx, s.store, phone, customer, now); err != nil {
			return nil, err
		}
		if err := deliver(ctx, s.messenger, kindCustomer, phone, s.introMessage()); err != nil {
			return nil, err
		}
	}

	reply, err := s.responder.VoicemailReply(ctx, transcript)
	if errors.Is(err, ErrNoCompletion) || (err == nil && reply == "") {
		logger.Warn("No AI reply generated for voicemail", zap.String("from", phone))
		return nil, ErrNoReply
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReplyFailed, err)
	}

	if err := deliver(ctx, s.messenger, kindCustomer, phone, reply); err != nil {
		return nil, err
	}

	notice := fmt.Sprintf("🎙️ Voicemail from %s: \"%s\"\n\nAI replied: \"%s\"", phone, transcript, reply)
	if err := notifyTradie(ctx, s.messenger, s.business.TradiePhone, notice); err != nil {
		return nil, fmt.Errorf("notify tradie: %w", err)
	}

	incoming := "Voicemail: " + models.Truncate(transcript, loggedReplyLength)
	if _, err := s.store.LogMessage(ctx, phone, incoming, models.Truncate(reply, loggedReplyLength)); err != nil {
		return nil, err
	}

	vm := &models.Voicemail{
		Phone:         phone,
		Transcription: transcript,
		AIReply:       reply,
		RecordingURL:  recordingURL,
	}
	if err := s.store.SaveVoicemail(ctx, vm); err != nil {
		return nil, err
	}
	return vm, nil
}

// transcript prefers the provider's transcription and falls back to Whisper
func (s *VoicemailService) transcript(ctx context.Context, recordingURL, provided string) string {
	if t := strings.TrimSpace(provided); t != "" {
		return t
	}
	if s.transcriber == nil || recordingURL == "" {
		return transcriptionUnavailable
	}

	text, err := s.transcriber.Transcribe(ctx, recordingURL)
	if err != nil {
		logger.Error("Failed to transcribe voicemail", zap.String("recording_url", recordingURL), zap.Error(err))
		return transcriptionUnavailable
	}
	if text = strings.TrimSpace(text); text == "" {
		return transcriptionUnavailable
	}
	return text
}

func (s *VoicemailService) introMessage() string {
	if s.business.IntroMessage != "" {
		return s.business.IntroMessage
	}
	return config.DefaultIntroMessage
}
