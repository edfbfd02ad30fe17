// Package payment validates checkout requests and reconciles provider
// sessions into a paid/pending status per tenant.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"rent-reminder/internal/model"
)

var (
	// ErrProviderDisabled is returned when no payment provider is configured.
	ErrProviderDisabled = errors.New("Stripe n'est pas configuré.")
	// ErrWebhookNotConfigured is returned when webhooks arrive but no signing
	// secret is set.
	ErrWebhookNotConfigured = errors.New("Configuration webhook manquante.")
)

// SessionRequest is what the provider needs to open a hosted checkout page.
type SessionRequest struct {
	Amount          decimal.Decimal
	Currency        string
	CustomerEmail   string
	ClientReference string
	ProductName     string
	Description     string
	Metadata        map[string]string
	SuccessURL      string
	CancelURL       string
}

type CreatedSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// SessionFilter narrows a listing. Providers may ignore it; callers filter
// the result again on metadata.
type SessionFilter struct {
	OwnerID  string
	TenantID string
}

type SessionProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (CreatedSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.CheckoutSession, error)
}

// DisabledProvider rejects every call.
type DisabledProvider struct{}

func (DisabledProvider) CreateSession(context.Context, SessionRequest) (CreatedSession, error) {
	return CreatedSession{}, ErrProviderDisabled
}

func (DisabledProvider) ListSessions(context.Context, SessionFilter) ([]model.CheckoutSession, error) {
	return nil, ErrProviderDisabled
}

// Completed is a finished checkout reported by the provider's webhook.
type Completed struct {
	SessionID string
	Email     string
	Amount    decimal.Decimal
	Currency  string
	Metadata  map[string]string
}

// WebhookVerifier checks a webhook signature and extracts a completed
// checkout. ok is false for verified events of any other type.
type WebhookVerifier interface {
	ParseCompleted(payload []byte, signature string) (completed Completed, ok bool, err error)
}

var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "xaf": true, "xof": true, "xpf": true,
}

// IsZeroDecimal reports whether currency has no minor unit at the provider.
func IsZeroDecimal(currency string) bool {
	return zeroDecimal[strings.ToLower(currency)]
}

// UnitAmount converts amount to the provider's smallest currency unit.
func UnitAmount(amount decimal.Decimal, currency string) int64 {
	if IsZeroDecimal(currency) {
		return amount.RoundBank(0).IntPart()
	}
	return amount.Shift(2).RoundBank(0).IntPart()
}

// FromUnitAmount is the inverse of UnitAmount.
func FromUnitAmount(unit int64, currency string) decimal.Decimal {
	if IsZeroDecimal(currency) {
		return decimal.NewFromInt(unit)
	}
	return decimal.New(unit, -2)
}
