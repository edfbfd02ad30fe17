package payment

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"rent-reminder/internal/apperr"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/metrics"
	"rent-reminder/internal/model"
	"rent-reminder/internal/money"
)

// DefaultMaxAmount is the provider's largest accepted checkout amount in francs.
var DefaultMaxAmount = decimal.NewFromInt(655_959_993)

const (
	msgInvalidAmount = "Montant invalide."
	msgInvalidEmail  = "Adresse e-mail invalide."
	msgCreateFailed  = "Impossible de créer la session de paiement."
)

// CheckoutRequest is sent by the dashboard when a tenant pays online.
type CheckoutRequest struct {
	Amount        float64 `json:"amount"`
	TenantID      string  `json:"tenantId" validate:"required"`
	OwnerID       string  `json:"ownerId" validate:"required"`
	PropertyID    string  `json:"propertyId" validate:"required"`
	TenantEmail   string  `json:"tenantEmail" validate:"required,email"`
	TenantName    string  `json:"tenantName" validate:"required"`
	PropertyName  string  `json:"propertyName,omitempty"`
	DueDate       string  `json:"dueDate,omitempty"`
	PaymentMonths int     `json:"paymentMonths,omitempty"`
	SuccessURL    string  `json:"successUrl,omitempty"`
	CancelURL     string  `json:"cancelUrl,omitempty"`
}

func (r *CheckoutRequest) normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.OwnerID = strings.TrimSpace(r.OwnerID)
	r.PropertyID = strings.TrimSpace(r.PropertyID)
	r.TenantEmail = strings.ToLower(strings.TrimSpace(r.TenantEmail))
	r.TenantName = strings.TrimSpace(r.TenantName)
	r.PropertyName = strings.TrimSpace(r.PropertyName)
	r.DueDate = strings.TrimSpace(r.DueDate)
	r.PaymentMonths = clampMonths(r.PaymentMonths)
}

func clampMonths(months int) int {
	if months < 1 {
		return 1
	}
	if months > 12 {
		return 12
	}
	return months
}

type CheckoutConfig struct {
	Currency   string
	MaxAmount  decimal.Decimal
	SuccessURL string
	CancelURL  string
}

// CheckoutBuilder validates checkout requests and opens provider sessions.
type CheckoutBuilder struct {
	provider SessionProvider
	cfg      CheckoutConfig
	validate *validator.Validate
	logger   logging.Logger
}

func NewCheckoutBuilder(provider SessionProvider, cfg CheckoutConfig, logger logging.Logger) *CheckoutBuilder {
	if cfg.Currency == "" {
		cfg.Currency = "xof"
	}
	if !cfg.MaxAmount.IsPositive() {
		cfg.MaxAmount = DefaultMaxAmount
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &CheckoutBuilder{provider: provider, cfg: cfg, validate: v, logger: logger}
}

// CeilingMessage names the configured amount ceiling.
func (b *CheckoutBuilder) CeilingMessage() string {
	return "Le montant total doit être inférieur ou égal à " + money.Format(b.cfg.MaxAmount) + " pour Stripe."
}

// Validate normalizes req in place and reports the first violated rule.
func (b *CheckoutBuilder) Validate(req *CheckoutRequest) error {
	req.normalize()

	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		return apperr.Validation(msgInvalidAmount)
	}
	if amount.GreaterThan(b.cfg.MaxAmount) {
		return apperr.Validation(b.CeilingMessage())
	}

	if err := b.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			if first.Tag() == "email" {
				return apperr.Validation(msgInvalidEmail)
			}
			return apperr.Validation("Le champ " + first.Field() + " est requis.")
		}
		return apperr.Validation(err.Error())
	}
	return nil
}

// Metadata is attached to the session and copied to the payment. Blank
// values are dropped.
func Metadata(req CheckoutRequest) map[string]string {
	fields := map[string]string{
		model.MetaTenantID:      req.TenantID,
		model.MetaOwnerID:       req.OwnerID,
		model.MetaPropertyID:    req.PropertyID,
		model.MetaPaymentMonths: strconv.Itoa(req.PaymentMonths),
		model.MetaTenantName:    req.TenantName,
		model.MetaTenantEmail:   req.TenantEmail,
		model.MetaPropertyName:  req.PropertyName,
		model.MetaDueDate:       req.DueDate,
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// Create validates req and opens a session. Validation failures never reach
// the provider.
func (b *CheckoutBuilder) Create(ctx context.Context, req CheckoutRequest) (CreatedSession, error) {
	if err := b.Validate(&req); err != nil {
		metrics.CheckoutSessions.WithLabelValues("rejected").Inc()
		return CreatedSession{}, err
	}

	product := "Paiement loyer"
	if req.PropertyName != "" {
		product = "Loyer " + req.PropertyName
	}
	success, cancel := req.SuccessURL, req.CancelURL
	if success == "" {
		success = b.cfg.SuccessURL
	}
	if cancel == "" {
		cancel = b.cfg.CancelURL
	}

	session, err := b.provider.CreateSession(ctx, SessionRequest{
		Amount:          decimal.NewFromFloat(req.Amount),
		Currency:        b.cfg.Currency,
		CustomerEmail:   req.TenantEmail,
		ClientReference: req.TenantID,
		ProductName:     product,
		Description:     "Locataire: " + req.TenantName,
		Metadata:        Metadata(req),
		SuccessURL:      success,
		CancelURL:       cancel,
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("failed").Inc()
		b.logger.WithError(err).WithField("tenant_id", req.TenantID).Error("Failed to create checkout session")
		if errors.Is(err, ErrProviderDisabled) {
			return CreatedSession{}, apperr.Collaborator(ErrProviderDisabled.Error(), err)
		}
		return CreatedSession{}, apperr.Collaborator(msgCreateFailed, err)
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	b.logger.WithFields(logging.Fields{
		"session_id": session.ID,
		"tenant_id":  req.TenantID,
		"owner_id":   req.OwnerID,
	}).Info("Created checkout session")
	return session, nil
}
