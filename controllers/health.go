package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	ping func() error
}

// NewHealthController takes the database ping to run on each check
func NewHealthController(ping func() error) *HealthController {
	return &HealthController{ping: ping}
}

func (ctl *HealthController) Health(c *gin.Context) {
	status, database := http.StatusOK, "ok"
	if err := ctl.ping(); err != nil {
		status, database = http.StatusServiceUnavailable, "unavailable"
	}
	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
