package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-reminder/internal/auth"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/mailer"
	"rent-reminder/internal/model"
	"rent-reminder/internal/payment"
	"rent-reminder/internal/reminder"
	"rent-reminder/internal/storage"
)

var now = time.Date(2099, time.February, 25, 10, 0, 0, 0, time.UTC)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type stubProvider struct {
	created  []payment.SessionRequest
	sessions []model.CheckoutSession
	err      error
}

func (p *stubProvider) CreateSession(_ context.Context, req payment.SessionRequest) (payment.CreatedSession, error) {
	if p.err != nil {
		return payment.CreatedSession{}, p.err
	}
	p.created = append(p.created, req)
	return payment.CreatedSession{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil
}

func (p *stubProvider) ListSessions(context.Context, payment.SessionFilter) ([]model.CheckoutSession, error) {
	return p.sessions, p.err
}

type stubVerifier struct {
	completed payment.Completed
	ok        bool
	err       error
}

func (v stubVerifier) ParseCompleted([]byte, string) (payment.Completed, bool, error) {
	return v.completed, v.ok, v.err
}

type fixture struct {
	api      *API
	mail     *recordingMailer
	provider *stubProvider
	tokens   *auth.Tokens
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := logging.NewDiscard()

	mem := storage.NewMemory()
	require.NoError(t, mem.Put(ctx, storage.ResourceProperties, "p1", model.Property{
		ID: "p1", Name: "Appartement Plateau", Rent: 150000, Charges: 10000, OwnerID: "owner-1",
	}))
	require.NoError(t, mem.Put(ctx, storage.ResourceTenants, "t1", model.Tenant{
		ID: "t1", Name: "Awa Ndiaye", Email: "awa@example.com", Status: model.TenantActive,
		PropertyID: "p1", OwnerID: "owner-1", EntryDate: "2099-01-01", PaymentMonths: 2,
	}))
	require.NoError(t, mem.Put(ctx, storage.ResourceTenants, "t2", model.Tenant{
		ID: "t2", Name: "Moussa Diop", Email: "moussa@example.com", Status: model.TenantActive,
		PropertyID: "p1", OwnerID: "owner-2", EntryDate: "2099-01-01", PaymentMonths: 2,
	}))
	recs := storage.NewRecords(mem, "owner-1", logger)

	mail := &recordingMailer{}
	provider := &stubProvider{}
	tokens := auth.NewTokens(secret, time.Hour)

	selector := reminder.NewSelector(recs, 7, time.UTC, logger)
	svc := Services{
		Selector: selector,
		Dispatcher: reminder.NewDispatcher(recs, selector, mail, reminder.DispatcherConfig{
			Concurrency: 2,
			SendTimeout: time.Second,
			Now:         func() time.Time { return now },
		}, logger),
		Checkout:   payment.NewCheckoutBuilder(provider, payment.CheckoutConfig{Currency: "xof"}, logger),
		Reconciler: payment.NewReconciler(provider, logger),
		Receipts:   payment.NewReceiptNotifier(mail, "https://app.test", logger),
		Tokens:     tokens,
	}
	a := NewAPI(svc, logger)
	a.Now = func() time.Time { return now }
	return &fixture{api: a, mail: mail, provider: provider, tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.api.Router().ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUpcomingComputesDueDateFromEntryDate(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/reminders/upcoming?ownerId=owner-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var up reminder.Upcoming
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	require.Equal(t, 1, up.TotalRecipients)
	require.Len(t, up.Reminders, 1)
	c := up.Reminders[0]
	assert.Equal(t, "t1", c.TenantID)
	assert.Equal(t, "2099-03-01", c.DueDate)
	assert.Equal(t, 4, c.DaysUntilDue)
	assert.Equal(t, "160 000 F CFA", c.AmountFormatted)
	assert.Equal(t, "2099-03-01", up.DueDate)
	assert.Equal(t, "2099-02-22", up.ReminderDate)
}

func TestUpcomingWithoutOwnerListsEveryOwner(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/reminders/upcoming", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var up reminder.Upcoming
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, 2, up.TotalRecipients)
}

func TestSendRemindersAndHistory(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodPost, "/api/reminders/send", reminder.SendRequest{
		OwnerID:   "owner-1",
		TenantIDs: []string{"t1", "t2", "ghost"},
		Message:   "Bonjour {{prenom}}, {{montant}} avant le {{date}}.",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res reminder.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Failed)
	assert.NotEmpty(t, res.LogID)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "awa@example.com", f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].Text, "Bonjour Awa, 160 000 F CFA avant le 01/03/2099.")

	rec = f.do(t, http.MethodGet, "/api/reminders/history?ownerId=owner-1&limit=abc", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []model.ReminderLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, res.LogID, logs[0].ID)
	assert.Equal(t, model.DispatchManual, logs[0].Mode)
}

func TestSendRemindersValidation(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/reminders/send", reminder.SendRequest{
		OwnerID: "owner-1", Message: "Bonjour",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, detail(t, rec))

	rec = f.do(t, http.MethodPost, "/api/reminders/send", reminder.SendRequest{
		TenantIDs: []string{"t1"}, Message: "Bonjour",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/reminders/send", reminder.SendRequest{
		OwnerID: "owner-1", TenantIDs: []string{"ghost"}, Message: "Bonjour",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Aucun locataire correspondant pour cette relance.", detail(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/reminders/send", bytes.NewBufferString("{"))
	out := httptest.NewRecorder()
	f.api.Router().ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
	assert.Equal(t, msgBadBody, detail(t, out))
	assert.Empty(t, f.mail.sent)
}

func TestAuthenticatedOwner(t *testing.T) {
	f := newFixture(t, "s3cret")

	rec := f.do(t, http.MethodGet, "/api/reminders/upcoming", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := f.tokens.GenerateToken("owner-1")
	require.NoError(t, err)
	bearer := http.Header{"Authorization": []string{"Bearer " + token}}

	rec = f.do(t, http.MethodGet, "/api/reminders/upcoming", nil, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	var up reminder.Upcoming
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, 1, up.TotalRecipients)

	rec = f.do(t, http.MethodGet, "/api/reminders/upcoming?ownerId=owner-2", nil, bearer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgOwnerMismatch, detail(t, rec))

	// Health stays public.
	rec = f.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func validCheckout() payment.CheckoutRequest {
	return payment.CheckoutRequest{
		Amount:        1200.50,
		TenantID:      "t1",
		OwnerID:       "owner-1",
		PropertyID:    "p1",
		TenantEmail:   "awa@example.com",
		TenantName:    "Awa Ndiaye",
		PropertyName:  "Appartement Plateau",
		DueDate:       "2099-03-01",
		PaymentMonths: 2,
	}
}

func TestCheckout(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/payments/checkout", validCheckout(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"sessionId":"cs_test_1","url":"https://checkout.test/cs_test_1"}`, rec.Body.String())
	require.Len(t, f.provider.created, 1)
	assert.Equal(t, "Loyer Appartement Plateau", f.provider.created[0].ProductName)

	over := validCheckout()
	over.Amount = 700_000_000
	rec = f.do(t, http.MethodPost, "/api/payments/checkout", over, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Le montant total doit être inférieur ou égal à 655 959 993 F CFA pour Stripe.", detail(t, rec))
	assert.Len(t, f.provider.created, 1)

	f.provider.err = errors.New("stripe: api down")
	rec = f.do(t, http.MethodPost, "/api/payments/checkout", validCheckout(), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPaymentHistory(t *testing.T) {
	f := newFixture(t, "")
	f.provider.sessions = []model.CheckoutSession{
		{
			ID:        "cs_1",
			Status:    model.SessionPaid,
			Amount:    160000,
			Currency:  "xof",
			CreatedAt: now.Add(-time.Hour),
			Metadata: map[string]string{
				model.MetaTenantID: "t1", model.MetaOwnerID: "owner-1", model.MetaPropertyID: "p1",
			},
		},
		{
			ID:        "cs_2",
			Status:    model.SessionPending,
			CreatedAt: now,
			Metadata:  map[string]string{model.MetaTenantID: "t2", model.MetaOwnerID: "owner-2"},
		},
	}

	rec := f.do(t, http.MethodGet, "/api/payments/history?ownerId=owner-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []model.PaymentStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "t1", statuses[0].TenantID)
	assert.Equal(t, model.SessionPaid, statuses[0].Status)

	rec = f.do(t, http.MethodGet, "/api/payments/history", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func postWebhook(f *fixture, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString(`{"id":"evt_1"}`))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	f.api.Router().ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	f := newFixture(t, "s3cret")
	f.api.Webhook = stubVerifier{ok: true, completed: payment.Completed{
		SessionID: "cs_1",
		Amount:    decimal.NewFromInt(160000),
		Currency:  "xof",
		Metadata: map[string]string{
			model.MetaTenantEmail:  "awa@example.com",
			model.MetaTenantName:   "Awa Ndiaye",
			model.MetaPropertyName: "Appartement Plateau",
		},
	}}

	rec := postWebhook(f, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgMissingSig, detail(t, rec))

	rec = postWebhook(f, "t=1,v1=abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "Facture - Paiement reçu pour Appartement Plateau", f.mail.sent[0].Subject)

	f.api.Webhook = stubVerifier{err: errors.New("signature mismatch")}
	rec = postWebhook(f, "t=1,v1=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBadSignature, detail(t, rec))

	f.api.Webhook = stubVerifier{err: payment.ErrWebhookNotConfigured}
	rec = postWebhook(f, "t=1,v1=abc")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Configuration webhook manquante.", detail(t, rec))

	f.api.Webhook = stubVerifier{}
	rec = postWebhook(f, "t=1,v1=abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.mail.sent, 1)
}
