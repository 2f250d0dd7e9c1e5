package utils

import (
	"github.com/gin-gonic/gin"
)

// RespondWithError aborts the request with a short plain-text body. Webhook
// callers (Twilio) only look at the status code.
func RespondWithError(c *gin.Context, status int, message string) {
	c.Abort()
	c.String(status, message)
}
