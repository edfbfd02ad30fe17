package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"rent-reminder/internal/logging"
	"rent-reminder/internal/model"
	"rent-reminder/internal/payment"
)

// listLimit bounds one history listing to a single Stripe page.
const listLimit = 100

// Config for creating a new Stripe provider
type Config struct {
	SecretKey     string // STRIPE_SECRET_KEY
	WebhookSecret string // STRIPE_WEBHOOK_SECRET
	Logger        logging.Logger
}

// Provider implements payment.SessionProvider and payment.WebhookVerifier
// on Stripe Checkout.
type Provider struct {
	// sessions carries its own key; the package-level stripe.Key is never set.
	sessions      *checkoutsession.Client
	webhookSecret string
	logger        logging.Logger
}

func NewProvider(config Config) *Provider {
	return &Provider{
		sessions: &checkoutsession.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: config.SecretKey,
		},
		webhookSecret: config.WebhookSecret,
		logger:        config.Logger,
	}
}

// CreateSession opens a one-off card payment for the request amount.
func (p *Provider) CreateSession(ctx context.Context, req payment.SessionRequest) (payment.CreatedSession, error) {
	params := sessionParams(req)
	params.Context = ctx

	sess, err := p.sessions.New(params)
	if err != nil {
		return payment.CreatedSession{}, fmt.Errorf("failed to create checkout session: %w", err)
	}

	p.logger.WithFields(logging.Fields{
		"session_id": sess.ID,
		"tenant_id":  req.ClientReference,
	}).Info("Created Stripe checkout session")

	return payment.CreatedSession{ID: sess.ID, URL: sess.URL}, nil
}

func sessionParams(req payment.SessionRequest) *stripe.CheckoutSessionParams {
	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.Description != "" {
		productData.Description = stripe.String(req.Description)
	}

	return &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(req.ClientReference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(req.Currency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(payment.UnitAmount(req.Amount, req.Currency)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
}

// ListSessions returns the most recent checkout sessions. Stripe cannot
// filter sessions on metadata, so the filter is applied by the caller.
func (p *Provider) ListSessions(ctx context.Context, _ payment.SessionFilter) ([]model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{}
	params.Limit = stripe.Int64(listLimit)
	params.Context = ctx

	var out []model.CheckoutSession
	iter := p.sessions.List(params)
	for iter.Next() {
		out = append(out, toSession(iter.CheckoutSession()))
		if len(out) >= listLimit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checkout sessions: %w", err)
	}
	return out, nil
}

func toSession(s *stripe.CheckoutSession) model.CheckoutSession {
	currency := string(s.Currency)
	status := model.SessionPending
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		status = model.SessionPaid
	case s.Status == stripe.CheckoutSessionStatusExpired:
		status = model.SessionOther
	}

	meta := s.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return model.CheckoutSession{
		ID:        s.ID,
		Status:    status,
		Metadata:  meta,
		Amount:    payment.FromUnitAmount(s.AmountTotal, currency).InexactFloat64(),
		Currency:  currency,
		CreatedAt: time.Unix(s.Created, 0).UTC(),
	}
}

// ParseCompleted verifies the Stripe-Signature header and extracts a
// checkout.session.completed event.
func (p *Provider) ParseCompleted(payload []byte, signature string) (payment.Completed, bool, error) {
	if p.webhookSecret == "" {
		return payment.Completed{}, false, payment.ErrWebhookNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return payment.Completed{}, false, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		p.logger.WithField("event_type", event.Type).Debug("Ignoring Stripe event")
		return payment.Completed{}, false, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return payment.Completed{}, false, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return toCompleted(&sess), true, nil
}

func toCompleted(s *stripe.CheckoutSession) payment.Completed {
	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}
	currency := string(s.Currency)
	return payment.Completed{
		SessionID: s.ID,
		Email:     email,
		Amount:    payment.FromUnitAmount(s.AmountTotal, currency),
		Currency:  currency,
		Metadata:  s.Metadata,
	}
}
