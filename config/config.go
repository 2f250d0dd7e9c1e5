package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const DefaultIntroMessage = "Hey mate, I’m currently on the tools but I’m handing you to my AI assistant. " +
	"You can book a job, get a quote, or ask a question by replying here. " +
	"Leave your name and contact details and I’ll get back to you."

// Config holds all settings injected into the server's components
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Twilio    TwilioConfig
	OpenAI    OpenAIConfig
	Business  BusinessConfig
	Summary   SummaryConfig
	RateLimit RateLimitConfig
	Dashboard DashboardConfig
	Logging   LoggingConfig
}

type AppConfig struct {
	Port        string
	BaseURL     string
	GinMode     string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Driver     string // "sqlite" or "postgres"
	URL        string
	SQLitePath string
}

type TwilioConfig struct {
	Provider          string // "twilio" or "console"
	AccountSID        string
	AuthToken         string
	PhoneNumber       string
	ValidateSignature bool
}

type OpenAIConfig struct {
	APIKey     string
	Model      string
	Transcribe bool
}

// BusinessConfig holds the tradie-facing settings used when composing replies
type BusinessConfig struct {
	TradiePhone      string
	CallingCode      string
	TradeCategory    string
	CallbackTime     string
	IntroMessage     string
	ReintroduceAfter time.Duration
}

type SummaryConfig struct {
	Schedule string
	Timezone string
	Keywords []string
}

type RateLimitConfig struct {
	Max      int
	Window   time.Duration
	RedisURL string
}

type DashboardConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type LoggingConfig struct {
	Path  string
	Level string
}

// Load reads configuration from the environment, loading .env first if present
func Load() (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Port:        getEnv("PORT", "10000"),
			BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:10000"), "/"),
			GinMode:     getEnv("GIN_MODE", "release"),
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			URL:        os.Getenv("DB_URL"),
			SQLitePath: getEnv("SQLITE_PATH", "messages.db"),
		},
		Twilio: TwilioConfig{
			Provider:          strings.ToLower(getEnv("MESSAGING_PROVIDER", "twilio")),
			AccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber:       os.Getenv("TWILIO_PHONE_NUMBER"),
			ValidateSignature: getEnvBool("TWILIO_VALIDATE_SIGNATURE", false),
		},
		OpenAI: OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			Model:      getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Transcribe: getEnvBool("OPENAI_TRANSCRIBE", true),
		},
		Business: BusinessConfig{
			TradiePhone:      os.Getenv("TRADIE_PHONE_NUMBER"),
			CallingCode:      getEnv("COUNTRY_CALLING_CODE", "61"),
			TradeCategory:    strings.ToLower(getEnv("TRADE_CATEGORY", "electrician")),
			CallbackTime:     getEnv("CALLBACK_TIME", "4 pm"),
			IntroMessage:     getEnv("INTRO_MESSAGE", DefaultIntroMessage),
			ReintroduceAfter: time.Duration(getEnvInt("REINTRO_AFTER_DAYS", 30)) * 24 * time.Hour,
		},
		Summary: SummaryConfig{
			Schedule: getEnv("SUMMARY_SCHEDULE", "0 18 * * *"),
			Timezone: getEnv("TIMEZONE", "Australia/Sydney"),
			Keywords: getEnvList("SUMMARY_KEYWORDS", []string{
				"book", "booking", "schedule", "call", "quote", "job", "call back", "quoting", "ring",
			}),
		},
		RateLimit: RateLimitConfig{
			Max:      getEnvInt("RATE_LIMIT_MAX", 5),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Dashboard: DashboardConfig{
			Secret:   os.Getenv("DASHBOARD_SECRET"),
			TokenTTL: getEnvDuration("DASHBOARD_TOKEN_TTL", 30*24*time.Hour),
		},
		Logging: LoggingConfig{
			Path:  os.Getenv("LOG_PATH"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		return nil, fmt.Errorf("failed to read .env: %w", envErr)
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DB_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Twilio.Provider {
	case "twilio", "console":
	default:
		return fmt.Errorf("unsupported MESSAGING_PROVIDER %q", c.Twilio.Provider)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit max and window must be positive")
	}
	return nil
}

// Location returns the timezone the daily summary runs in
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Summary.Timezone)
}

// IsPostgres reports whether the remote database is configured
func (d DatabaseConfig) IsPostgres() bool {
	return d.Driver == "postgres"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
