package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	Timezone            string `env:"TIMEZONE" envDefault:"Africa/Harare"`
	SessionStore        string `env:"SESSION_STORE" envDefault:"redis"`
	SessionTTLSeconds   int    `env:"SESSION_TTL_SECONDS" envDefault:"300"`
	SlotCapacity        int    `env:"SLOT_CAPACITY" envDefault:"3"`
	MaxDaysAhead        int    `env:"BOOKING_MAX_DAYS_AHEAD" envDefault:"90"`
	UssdRateLimitPerMin int    `env:"USSD_RATE_LIMIT_PER_MIN" envDefault:"30"`
	HelpLine            string `env:"HELP_LINE" envDefault:"0242-795000"`
	HelpURL             string `env:"HELP_URL" envDefault:"www.rg.gov.zw"`
	NoShowSweepMinutes  int    `env:"NO_SHOW_SWEEP_MINUTES" envDefault:"30"`

	Notify NotifyConfig
}

type NotifyConfig struct {
	Queue        string  `env:"NOTIFY_QUEUE" envDefault:"notifications"`
	Concurrency  int     `env:"NOTIFY_CONCURRENCY" envDefault:"5"`
	BufferSize   int     `env:"NOTIFY_BUFFER_SIZE" envDefault:"256"`
	SMSEnabled   bool    `env:"SMS_ENABLED" envDefault:"false"`
	SMSUsername  string  `env:"SMS_USERNAME" envDefault:"sandbox"`
	SMSAPIKey    string  `env:"SMS_API_KEY"`
	SMSSenderID  string  `env:"SMS_SENDER_ID"`
	SMSBaseURL   string  `env:"SMS_BASE_URL" envDefault:"https://api.africastalking.com/version1/messaging"`
	SMSRatePerS  float64 `env:"SMS_RATE_PER_SEC" envDefault:"5"`
	EmailEnabled bool    `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPAddr     string  `env:"SMTP_ADDR" envDefault:"localhost:587"`
	SMTPUsername string  `env:"SMTP_USERNAME"`
	SMTPPassword string  `env:"SMTP_PASSWORD"`
	EmailFrom    string  `env:"EMAIL_FROM" envDefault:"noreply@zimid.gov.zw"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c *Config) NoShowSweepInterval() time.Duration {
	return time.Duration(c.NoShowSweepMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Location resolves the configured timezone used for "today".
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate(isProduction bool) error {
	if c.SessionStore != SessionStoreRedis && c.SessionStore != SessionStoreMemory {
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreRedis, SessionStoreMemory, c.SessionStore)
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.SlotCapacity <= 0 {
		return fmt.Errorf("SLOT_CAPACITY must be positive")
	}
	if c.MaxDaysAhead <= 0 {
		return fmt.Errorf("BOOKING_MAX_DAYS_AHEAD must be positive")
	}
	if c.NoShowSweepMinutes <= 0 {
		return fmt.Errorf("NO_SHOW_SWEEP_MINUTES must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if isProduction {
		if c.SessionStore == SessionStoreMemory {
			return fmt.Errorf("SESSION_STORE=memory is not allowed in production: sessions must survive across instances")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.Notify.SMSEnabled && c.Notify.SMSAPIKey == "" {
			log.Warn().Msg("SMS_ENABLED without SMS_API_KEY in production: messages will only be logged")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
