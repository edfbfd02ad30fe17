package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rent-reminder/internal/auth"
	"rent-reminder/internal/config"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/mailer"
	"rent-reminder/internal/messaging"
	"rent-reminder/internal/payment"
	"rent-reminder/internal/reminder"
	"rent-reminder/internal/storage"
	"rent-reminder/internal/stripe"
)

// app holds every long-lived component built from the configuration.
type app struct {
	cfg    *config.Config
	logger logging.Logger

	store   storage.RecordStore
	records *storage.Records

	// smtp is the direct transport, nil when no SMTP host is set.
	smtp   *mailer.SMTP
	mail   mailer.Mailer
	rabbit *messaging.RabbitClient

	provider payment.SessionProvider
	webhook  payment.WebhookVerifier
	tokens   *auth.Tokens

	selector   *reminder.Selector
	dispatcher *reminder.Dispatcher
	late       *reminder.LateChecker
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLoggerWithLevel(cfg.Server.LogLevel)
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	a.records = storage.NewRecords(a.store, cfg.Server.DefaultOwner, logger)

	if err := a.openMailer(); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Payments.StripeSecretKey != "" {
		p := stripe.NewProvider(stripe.Config{
			SecretKey:     cfg.Payments.StripeSecretKey,
			WebhookSecret: cfg.Payments.StripeWebhookSecret,
			Logger:        logger,
		})
		a.provider, a.webhook = p, p
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, online payments disabled")
		a.provider = payment.DisabledProvider{}
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, API runs without authentication")
	}
	a.tokens = auth.NewTokens(cfg.Auth.JWTSecret, 24*time.Hour)

	loc := cfg.Location()
	a.selector = reminder.NewSelector(a.records, cfg.Reminders.WindowDays, loc, logger)
	a.dispatcher = reminder.NewDispatcher(a.records, a.selector, a.mail, reminder.DispatcherConfig{
		Concurrency: cfg.Reminders.SendConcurrency,
		SendTimeout: cfg.Reminders.SendTimeout,
		AppURL:      cfg.Server.AppURL,
	}, logger)
	a.late = reminder.NewLateChecker(a.records, a.records, loc, logger)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg.Storage
	switch cfg.Driver {
	case "postgres":
		pg, err := storage.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return err
		}
		a.store = pg
		a.logger.Info("PostgreSQL connected")
	case "redis":
		client, err := storage.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return err
		}
		a.store = storage.NewRedis(client, cfg.RedisPrefix)
		a.logger.Info("Redis connected")
	case "memory":
		a.store = storage.NewMemory()
		a.logger.Warn("Using in-memory storage, records are lost on exit")
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return nil
}

// openMailer picks the transport. In queue mode reminders are published to
// the RabbitMQ outbox and the serve command's workers deliver them over SMTP.
func (a *app) openMailer() error {
	cfg := a.cfg
	if !cfg.MailerConfigured() {
		a.logger.Warn("Mail transport not configured, reminders cannot be sent")
		a.mail = mailer.Disabled{}
		return nil
	}

	a.smtp = mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		User:     cfg.Mail.User,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
		ReplyTo:  cfg.Mail.ReplyTo,
	})
	if cfg.Mail.Transport != "queue" {
		a.mail = a.smtp
		return nil
	}

	rabbit, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, a.logger)
	if err != nil {
		return err
	}
	if err := rabbit.DeclareOutbox(); err != nil {
		rabbit.Close()
		return err
	}
	a.rabbit = rabbit
	a.mail = mailer.NewQueue(rabbit)
	a.logger.Info("RabbitMQ connected, mail goes through the outbox")
	return nil
}

func (a *app) checkoutConfig() payment.CheckoutConfig {
	return payment.CheckoutConfig{
		Currency:   a.cfg.Payments.Currency,
		MaxAmount:  decimal.NewFromFloat(a.cfg.Payments.MaxAmount),
		SuccessURL: a.cfg.Payments.SuccessURL,
		CancelURL:  a.cfg.Payments.CancelURL,
	}
}

func (a *app) Close() {
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			a.logger.WithError(err).Warn("RabbitMQ close error")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).Warn("Storage close error")
		}
	}
}
