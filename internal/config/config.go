// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int    `yaml:"port"`
		DefaultOwner string `yaml:"default_owner"`
		AppURL       string `yaml:"app_url"`
		LogLevel     string `yaml:"log_level"`
	} `yaml:"server"`

	Storage struct {
		// Driver is one of postgres, redis or memory.
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		RedisAddr   string `yaml:"redis_addr"`
		RedisPass   string `yaml:"redis_password"`
		RedisDB     int    `yaml:"redis_db"`
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"storage"`

	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`

	Mail struct {
		// Transport is smtp (send inline) or queue (publish to the outbox).
		Transport string `yaml:"transport"`
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		User      string `yaml:"user"`
		Password  string `yaml:"password"`
		From      string `yaml:"from"`
		FromName  string `yaml:"from_name"`
		ReplyTo   string `yaml:"reply_to"`
	} `yaml:"mail"`

	Workers int `yaml:"workers"`

	Reminders struct {
		Enabled         bool          `yaml:"enabled"`
		WindowDays      int           `yaml:"window_days"`
		Hour            int           `yaml:"hour"`
		LateCheckHour   int           `yaml:"late_check_hour"`
		TimeZone        string        `yaml:"timezone"`
		SendConcurrency int           `yaml:"send_concurrency"`
		SendTimeout     time.Duration `yaml:"send_timeout"`
	} `yaml:"reminders"`

	Payments struct {
		StripeSecretKey     string  `yaml:"stripe_secret_key"`
		StripeWebhookSecret string  `yaml:"stripe_webhook_secret"`
		Currency            string  `yaml:"currency"`
		MaxAmount           float64 `yaml:"max_amount"`
		SuccessURL          string  `yaml:"success_url"`
		CancelURL           string  `yaml:"cancel_url"`
	} `yaml:"payments"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// DefaultMaxAmount is the largest checkout amount, in francs, accepted by the
// payment processor.
const DefaultMaxAmount = 655_959_993

// LoadConfig reads path (a missing file is fine), loads .env when present,
// applies environment overrides and fills defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.DefaultOwner, "DEFAULT_OWNER_ID")
	setString(&c.Server.AppURL, "APP_URL")
	setString(&c.Server.LogLevel, "LOG_LEVEL")
	setInt(&c.Server.Port, "PORT")

	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Storage.RedisPass, "REDIS_PASSWORD")

	setString(&c.RabbitMQ.URL, "RABBITMQ_URL")

	setString(&c.Mail.Transport, "MAIL_TRANSPORT")
	setString(&c.Mail.Host, "SMTP_HOST")
	setInt(&c.Mail.Port, "SMTP_PORT")
	setString(&c.Mail.User, "SMTP_USER")
	setString(&c.Mail.Password, "SMTP_PASSWORD")
	setString(&c.Mail.From, "MAIL_FROM")
	setString(&c.Mail.ReplyTo, "MAIL_REPLY_TO")

	setBool(&c.Reminders.Enabled, "REMINDER_ENABLED")
	setString(&c.Reminders.TimeZone, "REMINDER_CRON_TZ")

	setString(&c.Payments.StripeSecretKey, "STRIPE_SECRET_KEY")
	setString(&c.Payments.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.DefaultOwner == "" {
		c.Server.DefaultOwner = "admin-1"
	}
	if c.Server.AppURL == "" {
		c.Server.AppURL = "http://localhost:3000"
	}
	if c.Storage.Driver == "" {
		switch {
		case c.Storage.DatabaseURL != "":
			c.Storage.Driver = "postgres"
		case c.Storage.RedisAddr != "":
			c.Storage.Driver = "redis"
		default:
			c.Storage.Driver = "memory"
		}
	}
	if c.Mail.Transport == "" {
		c.Mail.Transport = "smtp"
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Reminders.WindowDays <= 0 {
		c.Reminders.WindowDays = 7
	}
	if c.Reminders.Hour == 0 {
		c.Reminders.Hour = 9
	}
	if c.Reminders.LateCheckHour == 0 {
		c.Reminders.LateCheckHour = 1
	}
	if c.Reminders.TimeZone == "" {
		c.Reminders.TimeZone = "UTC"
	}
	if c.Reminders.SendConcurrency <= 0 {
		c.Reminders.SendConcurrency = 4
	}
	if c.Reminders.SendTimeout <= 0 {
		c.Reminders.SendTimeout = 15 * time.Second
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "xof"
	}
	if c.Payments.MaxAmount <= 0 {
		c.Payments.MaxAmount = DefaultMaxAmount
	}
	base := strings.TrimRight(c.Server.AppURL, "/")
	if c.Payments.SuccessURL == "" {
		c.Payments.SuccessURL = base + "/dashbord/paiements?status=success"
	}
	if c.Payments.CancelURL == "" {
		c.Payments.CancelURL = base + "/dashbord/paiements?status=cancel"
	}
}

// MailerConfigured reports whether outgoing mail has somewhere to go.
func (c *Config) MailerConfigured() bool {
	if c.Mail.Transport == "queue" {
		return c.RabbitMQ.URL != "" && c.Mail.Host != ""
	}
	return c.Mail.Host != ""
}

// RemindersActive gates the scheduled trigger only; the HTTP endpoints are
// always served.
func (c *Config) RemindersActive() bool {
	return c.Reminders.Enabled && c.MailerConfigured()
}

// Location returns the scheduler time zone, UTC when the name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminders.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}
