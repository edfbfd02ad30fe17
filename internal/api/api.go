package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"rent-reminder/internal/apperr"
	"rent-reminder/internal/auth"
	_ "rent-reminder/internal/docs"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/metrics"
	"rent-reminder/internal/payment"
	"rent-reminder/internal/reminder"
)

const (
	msgBadBody        = "Corps de requête invalide."
	msgOwnerMismatch  = "Accès refusé pour ce propriétaire."
	msgMissingSig     = "Signature Stripe manquante."
	msgBadSignature   = "Signature webhook invalide."
	msgWebhookPayload = "Impossible de lire la requête webhook."

	maxBodyBytes = 1 << 20
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Services groups what the handlers call into. Webhook may be nil when no
// payment provider is configured.
type Services struct {
	Selector   *reminder.Selector
	Dispatcher *reminder.Dispatcher
	Checkout   *payment.CheckoutBuilder
	Reconciler *payment.Reconciler
	Receipts   *payment.ReceiptNotifier
	Webhook    payment.WebhookVerifier
	Tokens     *auth.Tokens
}

type API struct {
	Services
	Logger logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewAPI(svc Services, logger logging.Logger) *API {
	return &API{Services: svc, Logger: logger, Now: time.Now}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	// Public
	r.Get("/api/health", a.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Post("/api/payments/webhook", a.StripeWebhook)

	// Secured
	r.Group(func(r chi.Router) {
		r.Use(a.Tokens.Middleware)

		r.Get("/api/reminders/upcoming", a.UpcomingReminders)
		r.Post("/api/reminders/send", a.SendReminders)
		r.Get("/api/reminders/history", a.ReminderHistory)

		r.Post("/api/payments/checkout", a.CreateCheckout)
		r.Get("/api/payments/history", a.PaymentHistory)
	})

	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.Logger.WithFields(logging.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"latency":    time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

// resolveOwner picks the owner a request acts for. An authenticated owner
// wins over an absent one and forbids acting for anyone else.
func resolveOwner(r *http.Request, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	authed := auth.OwnerID(r.Context())
	if authed == "" {
		return requested, nil
	}
	if requested != "" && requested != authed {
		return "", apperr.Forbidden(msgOwnerMismatch)
	}
	return authed, nil
}

func (a *API) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.Logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Detail: apperr.Message(err)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation(msgBadBody)
	}
	return nil
}
