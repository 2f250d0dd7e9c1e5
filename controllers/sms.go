// controllers/sms.go
package controllers

import (
	"context"
	"net/http"

	"voltflow-backend/logger"
	"voltflow-backend/services"
	"voltflow-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type inboundHandler interface {
	HandleInbound(ctx context.Context, from, body string) (services.Decision, error)
}

// SMSController answers Twilio's inbound message webhook
type SMSController struct {
	conversation inboundHandler
}

func NewSMSController(conversation inboundHandler) *SMSController {
	return &SMSController{conversation: conversation}
}

func (ctl *SMSController) Inbound(c *gin.Context) {
	from := c.PostForm("From")
	body := c.PostForm("Body")
	if from == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	decision, err := ctl.conversation.HandleInbound(c.Request.Context(), from, body)
	if err != nil {
		logger.Error("Failed to handle SMS",
			zap.String("from", from),
			zap.String("action", decision.Action.String()),
			zap.Error(err),
		)
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.String(http.StatusOK, decisionMessage(decision))
}

func decisionMessage(d services.Decision) string {
	switch d.Action {
	case services.ActionIgnoreLowIntent:
		return "Low intent message ignored"
	case services.ActionSendIntro:
		return "AI assistant intro sent"
	case services.ActionRequestName:
		return "Asked for customer name"
	case services.ActionConfirmBooking:
		if d.CaptureName {
			return "Saved customer name and confirmed booking"
		}
		return "Booking handled"
	default:
		return "AI handled"
	}
}
