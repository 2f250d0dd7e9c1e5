// controllers/register.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"voltflow-backend/logger"
	"voltflow-backend/services"
	"voltflow-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterInput struct {
	Name     string `json:"name" form:"name"`
	Business string `json:"business" form:"business"`
	Email    string `json:"email" form:"email"`
	Phone    string `json:"phone" form:"phone"`
	PhoneRaw string `json:"phoneRaw" form:"phoneRaw"` // field name used by the signup form
}

type registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Registration, error)
}

type RegisterController struct {
	onboarding registrar
}

func NewRegisterController(onboarding registrar) *RegisterController {
	return &RegisterController{onboarding: onboarding}
}

func (ctl *RegisterController) Register(c *gin.Context) {
	var input RegisterInput

	// Accepts JSON and form posts
	if err := c.ShouldBind(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	phone := input.Phone
	if phone == "" {
		phone = input.PhoneRaw
	}

	reg, err := ctl.onboarding.Register(c.Request.Context(), services.RegisterInput{
		Name:     input.Name,
		Business: input.Business,
		Email:    input.Email,
		Phone:    phone,
	})
	switch {
	case errors.Is(err, services.ErrMissingFields):
		utils.RespondWithError(c, http.StatusBadRequest, "Missing required fields")
		return
	case errors.Is(err, services.ErrInvalidPhone):
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	case errors.Is(err, services.ErrDuplicatePhone):
		utils.RespondWithError(c, http.StatusConflict, "Phone already registered")
		return
	case errors.Is(err, services.ErrAssistantNumberMissing):
		logger.Error("TWILIO_PHONE_NUMBER is not set")
		utils.RespondWithError(c, http.StatusInternalServerError, "Server config error: Twilio number missing")
		return
	case err != nil:
		logger.Error("Registration failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Something went wrong")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"dashboardUrl": reg.DashboardURL,
	})
}
