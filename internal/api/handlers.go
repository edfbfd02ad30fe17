package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"rent-reminder/internal/apperr"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/model"
	"rent-reminder/internal/payment"
	"rent-reminder/internal/reminder"
)

// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary List tenants due within the reminder window
// @Tags Reminders
// @Security BearerAuth
// @Produce json
// @Param ownerId query string false "Owner id"
// @Success 200 {object} reminder.Upcoming
// @Failure 403 {object} ErrorResponse
// @Router /api/reminders/upcoming [get]
func (a *API) UpcomingReminders(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r, r.URL.Query().Get("ownerId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	upcoming, err := a.Selector.Select(r.Context(), a.now(), owner)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upcoming)
}

// @Summary Send reminders to selected tenants
// @Tags Reminders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body reminder.SendRequest true "Dispatch request"
// @Success 200 {object} reminder.Result
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/reminders/send [post]
func (a *API) SendReminders(w http.ResponseWriter, r *http.Request) {
	var req reminder.SendRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	owner, err := resolveOwner(r, req.OwnerID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	req.OwnerID = owner

	result, err := a.Dispatcher.Send(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// @Summary List recent dispatch logs
// @Tags Reminders
// @Security BearerAuth
// @Produce json
// @Param ownerId query string false "Owner id"
// @Param limit query int false "Max entries (1-50)"
// @Success 200 {array} model.ReminderLog
// @Router /api/reminders/history [get]
func (a *API) ReminderHistory(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r, r.URL.Query().Get("ownerId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	limit := reminder.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	logs, err := a.Dispatcher.History(r.Context(), owner, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// @Summary Open a hosted checkout session
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body payment.CheckoutRequest true "Checkout request"
// @Success 200 {object} payment.CreatedSession
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/payments/checkout [post]
func (a *API) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req payment.CheckoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	owner, err := resolveOwner(r, req.OwnerID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	req.OwnerID = owner

	session, err := a.Checkout.Create(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// @Summary Reconciled payment status per tenant
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param ownerId query string false "Owner id"
// @Param tenantId query string false "Tenant id"
// @Param propertyId query string false "Property id"
// @Success 200 {array} model.PaymentStatus
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/payments/history [get]
func (a *API) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := resolveOwner(r, q.Get("ownerId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	statuses, err := a.Reconciler.Reconcile(r.Context(), payment.HistoryQuery{
		OwnerID:    owner,
		TenantID:   q.Get("tenantId"),
		PropertyID: q.Get("propertyId"),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// @Summary Stripe webhook receiver
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Router /api/payments/webhook [post]
func (a *API) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Webhook == nil {
		a.writeError(w, r, apperr.Collaborator(payment.ErrProviderDisabled.Error(), payment.ErrProviderDisabled))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.writeError(w, r, apperr.Validation(msgWebhookPayload))
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		a.writeError(w, r, apperr.Validation(msgMissingSig))
		return
	}

	completed, ok, err := a.Webhook.ParseCompleted(payload, signature)
	switch {
	case errors.Is(err, payment.ErrWebhookNotConfigured):
		a.writeError(w, r, apperr.Internal(err.Error(), err))
		return
	case err != nil:
		a.Logger.WithError(err).Warn("Rejected Stripe webhook")
		a.writeError(w, r, apperr.Validation(msgBadSignature))
		return
	}

	if ok {
		a.Logger.WithFields(logging.Fields{
			"session_id": completed.SessionID,
			"tenant_id":  completed.Metadata[model.MetaTenantID],
		}).Info("Checkout completed")
		a.Receipts.Notify(r.Context(), completed)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
