package routes

import (
	"voltflow-backend/config"
	"voltflow-backend/controllers"
	"voltflow-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the constructed controllers and middleware inputs the router needs
type Deps struct {
	Config    *config.Config
	Limiter   utils.Limiter
	SMS       *controllers.SMSController
	Voice     *controllers.VoiceController
	Register  *controllers.RegisterController
	Dashboard *controllers.DashboardController
	Health    *controllers.HealthController
}

func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(config.PerformanceLogger())
	r.SetHTMLTemplate(controllers.DashboardTemplates())

	r.GET("/health", d.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Twilio webhooks
	webhooks := r.Group("")
	if cfg.Twilio.ValidateSignature {
		webhooks.Use(utils.TwilioSignatureMiddleware(cfg.Twilio.AuthToken, cfg.App.BaseURL))
	}
	{
		webhooks.POST("/sms", utils.RateLimitMiddleware(d.Limiter, cfg.Business.CallingCode), d.SMS.Inbound)
		webhooks.POST("/voice", d.Voice.Voice)
		webhooks.POST("/voicemail", d.Voice.Voicemail)
		webhooks.POST("/call-status", d.Voice.CallStatus)
	}

	r.POST("/register", d.Register.Register)

	dashboardAuth := utils.DashboardAuthMiddleware(cfg.Dashboard.Secret, d.Dashboard.Phone)

	dashboard := r.Group("/dashboard")
	{
		dashboard.GET("", d.Dashboard.Lookup)
		dashboard.GET("/view", dashboardAuth, d.Dashboard.View)
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(cfg.App.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.App.CORSOrigins
	}

	api := r.Group("/api")
	api.Use(cors.New(corsConfig))
	{
		api.GET("/messages", dashboardAuth, d.Dashboard.Messages)
	}

	return r
}
