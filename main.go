package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voltflow-backend/config"
	"voltflow-backend/controllers"
	"voltflow-backend/logger"
	"voltflow-backend/routes"
	"voltflow-backend/services"
	"voltflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.App.GinMode)

	app, err := setupApp(cfg)
	if err != nil {
		logger.Fatal("Failed to set up server", zap.Error(err))
	}
	printRoutes(app.router)

	if err := app.summary.StartScheduler(); err != nil {
		logger.Fatal("Failed to start summary scheduler", zap.Error(err))
	}
	defer app.summary.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           app.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // voicemail transcription and completion run inline
		IdleTimeout:       60 * time.Second,
	}
	if err := startServer(srv); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
	logger.Info("Server shutting down")
}

type application struct {
	router  *gin.Engine
	summary *services.SummaryService
}

func setupApp(cfg *config.Config) (*application, error) {
	db, err := config.ConnectDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	store := services.NewGormStore(db)
	messenger := services.NewMessenger(cfg.Twilio)

	ai := openai.NewClient(cfg.OpenAI.APIKey)
	responder := services.NewResponder(ai, store, cfg.OpenAI.Model, cfg.Business.TradeCategory)

	var transcriber services.Transcriber
	if cfg.OpenAI.Transcribe {
		transcriber = services.NewWhisperTranscriber(ai, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	}

	limiter, err := newLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	conversation := services.NewConversationService(store, messenger, responder, cfg.Business)
	voicemail := services.NewVoicemailService(store, messenger, responder, transcriber, cfg.Business)
	missedCall := services.NewMissedCallService(store, messenger, cfg.Business)
	onboarding := services.NewOnboardingService(store, messenger, cfg)
	summary, err := services.NewSummaryService(store, messenger, cfg)
	if err != nil {
		return nil, err
	}

	router := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		Limiter:   limiter,
		SMS:       controllers.NewSMSController(conversation),
		Voice:     controllers.NewVoiceController(voicemail, missedCall, cfg.App.BaseURL),
		Register:  controllers.NewRegisterController(onboarding),
		Dashboard: controllers.NewDashboardController(store, cfg.Business.CallingCode),
		Health:    controllers.NewHealthController(func() error { return config.Ping(db) }),
	})
	return &application{router: router, summary: summary}, nil
}

// newLimiter shares counters through Redis when REDIS_URL is set
func newLimiter(cfg config.RateLimitConfig) (utils.Limiter, error) {
	if cfg.RedisURL == "" {
		return utils.NewMemoryLimiter(cfg.Max, cfg.Window), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	logger.Info("Using Redis rate limiter", zap.String("addr", opts.Addr))
	return utils.NewRedisLimiter(redis.NewClient(opts), cfg.Max, cfg.Window), nil
}

// startServer blocks until SIGINT or SIGTERM, then shuts the server down
func startServer(srv *http.Server) error {
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		logger.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}
