// controllers/voice.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"voltflow-backend/logger"
	"voltflow-backend/models"
	"voltflow-backend/services"
	"voltflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

const voicemailGreeting = "Hi there! The tradie is currently unavailable. Please leave a message after the beep and we'll get back to you shortly."

type voicemailProcessor interface {
	Process(ctx context.Context, in services.VoicemailInput) (*models.Voicemail, error)
}

type callStatusHandler interface {
	HandleCallStatus(ctx context.Context, status, from string) (services.MissedCallResult, error)
}

// VoiceController handles the call webhooks: the voicemail prompt, the
// recording callback and call status updates
type VoiceController struct {
	voicemail  voicemailProcessor
	missedCall callStatusHandler
	baseURL    string
}

func NewVoiceController(voicemail voicemailProcessor, missedCall callStatusHandler, baseURL string) *VoiceController {
	return &VoiceController{voicemail: voicemail, missedCall: missedCall, baseURL: baseURL}
}

// Voice answers an incoming call with a greeting and records a voicemail
func (ctl *VoiceController) Voice(c *gin.Context) {
	callback := ctl.baseURL + "/voicemail"
	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: voicemailGreeting},
		&twiml.VoiceRecord{
			MaxLength:          "60",
			PlayBeep:           "true",
			Transcribe:         "true",
			TranscribeCallback: callback,
			Action:             callback,
		},
		&twiml.VoiceHangup{},
	})
	if err != nil {
		logger.Error("Failed to build TwiML", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(doc))
}

func (ctl *VoiceController) Voicemail(c *gin.Context) {
	from := c.PostForm("From")
	if from == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	_, err := ctl.voicemail.Process(c.Request.Context(), services.VoicemailInput{
		From:              from,
		RecordingURL:      c.PostForm("RecordingUrl"),
		TranscriptionText: c.PostForm("TranscriptionText"),
	})
	switch {
	case errors.Is(err, services.ErrNoReply):
		c.String(http.StatusOK, "No AI reply generated")
	case errors.Is(err, services.ErrReplyFailed):
		logger.Error("Voicemail reply failed", zap.String("from", from), zap.Error(err))
		c.String(http.StatusInternalServerError, "OpenAI failed")
	case err != nil:
		logger.Error("Voicemail handling failed", zap.String("from", from), zap.Error(err))
		c.String(http.StatusInternalServerError, "Voicemail handling failed")
	default:
		c.String(http.StatusOK, "Voicemail processed")
	}
}

// CallStatus always answers 200; failures are only logged
func (ctl *VoiceController) CallStatus(c *gin.Context) {
	status := c.PostForm("CallStatus")
	from := c.PostForm("From")

	res, err := ctl.missedCall.HandleCallStatus(c.Request.Context(), status, from)
	if err != nil {
		logger.Error("Error handling missed call", zap.String("from", from), zap.String("status", status), zap.Error(err))
	}
	if res == services.MissedCallSuppressed {
		c.String(http.StatusOK, "Intro recently sent. Skipping.")
		return
	}
	c.String(http.StatusOK, "Call status processed")
}
