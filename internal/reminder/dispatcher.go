package reminder

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"rent-reminder/internal/apperr"
	"rent-reminder/internal/duedate"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/mailer"
	"rent-reminder/internal/metrics"
	"rent-reminder/internal/model"
	"rent-reminder/internal/money"
)

// DefaultTemplate is used by scheduled runs and by manual sends without a message.
const DefaultTemplate = "Bonjour {{locataire}},\n\n" +
	"Ceci est un rappel concernant votre loyer de {{montant}} pour {{logement}}, dû avant le {{date}}.\n" +
	"Merci de procéder au paiement dès que possible.\n"

const (
	previewRunes     = 280
	fallbackProperty = "votre logement"

	msgOwnerRequired   = "L'identifiant du propriétaire est requis."
	msgTenantsRequired = "Veuillez sélectionner au moins un locataire."
	msgNoMatch         = "Aucun locataire correspondant pour cette relance."
	msgBadDueDate      = "Date d'échéance invalide."

	failUnknownTenant = "Locataire introuvable."
	failForeignTenant = "Locataire rattaché à un autre propriétaire."
	failNoEmail       = "Adresse e-mail manquante."
	failTimeout       = "Délai d'envoi dépassé."
)

// LogStore is the append-only side of the record store.
type LogStore interface {
	AppendReminderLog(ctx context.Context, entry model.ReminderLog) (string, error)
	ListReminderLogs(ctx context.Context, ownerID string, limit int) ([]model.ReminderLog, error)
}

type Store interface {
	Directory
	LogStore
}

// SendRequest is a manual dispatch. DueDate is optional (YYYY-MM-DD or DD/MM/YYYY).
type SendRequest struct {
	OwnerID   string   `json:"ownerId"`
	TenantIDs []string `json:"tenantIds"`
	Message   string   `json:"message"`
	DueDate   string   `json:"dueDate,omitempty"`
}

// Result is the outcome of one dispatch run. LogID is empty when the log
// could not be written.
type Result struct {
	OwnerID string                 `json:"ownerId"`
	Mode    model.DispatchMode     `json:"mode"`
	Total   int                    `json:"total"`
	Sent    int                    `json:"sent"`
	Failed  int                    `json:"failed"`
	DueDate string                 `json:"dueDate"`
	Results []model.DispatchResult `json:"results"`
	LogID   string                 `json:"logId"`
}

type DispatcherConfig struct {
	Concurrency int
	SendTimeout time.Duration
	// AppURL adds a payment link to the mails when set.
	AppURL string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Dispatcher renders and sends reminders and writes one log per run.
type Dispatcher struct {
	store    Store
	selector *Selector
	mail     mailer.Mailer
	cfg      DispatcherConfig
	logger   logging.Logger
}

func NewDispatcher(store Store, selector *Selector, mail mailer.Mailer, cfg DispatcherConfig, logger logging.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{store: store, selector: selector, mail: mail, cfg: cfg, logger: logger}
}

// target is one tenant to mail. A non-empty failure means the tenant is
// reported as failed without a send attempt.
type target struct {
	tenantID string
	name     string
	email    string
	property string
	amount   decimal.Decimal
	due      time.Time
	failure  string
}

// Send runs a manual dispatch. Every requested id is a target; ids that do
// not resolve to a mailable tenant of the owner are reported as failures.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (Result, error) {
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return Result{}, apperr.Validation(msgOwnerRequired)
	}
	ids := dedupe(req.TenantIDs)
	if len(ids) == 0 {
		return Result{}, apperr.Validation(msgTenantsRequired)
	}
	var requestedDue time.Time
	if strings.TrimSpace(req.DueDate) != "" {
		parsed, err := duedate.Parse(req.DueDate)
		if err != nil {
			return Result{}, apperr.Validation(msgBadDueDate)
		}
		requestedDue = parsed
	}

	tenants, err := d.store.ListTenants(ctx)
	if err != nil {
		return Result{}, err
	}
	props, err := d.store.ListProperties(ctx)
	if err != nil {
		return Result{}, err
	}
	byID := make(map[string]model.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	fallbackDue := duedate.EndOfMonth(d.today())
	targets := make([]target, 0, len(ids))
	matched := false
	for _, id := range ids {
		t, ok := byID[id]
		switch {
		case !ok:
			targets = append(targets, target{tenantID: id, failure: failUnknownTenant})
			continue
		case t.OwnerID != owner:
			targets = append(targets, target{tenantID: id, failure: failForeignTenant})
			continue
		}
		matched = true
		if t.Email == "" {
			targets = append(targets, target{tenantID: id, name: t.Name, failure: failNoEmail})
			continue
		}
		targets = append(targets, d.manualTarget(t, props, requestedDue, fallbackDue))
	}
	if !matched {
		return Result{}, apperr.NotFound(msgNoMatch)
	}

	template := strings.TrimSpace(req.Message)
	if template == "" {
		template = DefaultTemplate
	}
	logDue := requestedDue
	if logDue.IsZero() {
		logDue = earliestDue(targets, fallbackDue)
	}
	return d.dispatch(ctx, owner, model.DispatchManual, template, targets, logDue)
}

func (d *Dispatcher) manualTarget(t model.Tenant, props map[string]model.Property, requestedDue, fallbackDue time.Time) target {
	tg := target{tenantID: t.ID, name: t.Name, email: t.Email, property: fallbackProperty, amount: decimal.Zero}
	if prop, ok := props[t.PropertyID]; ok && t.PropertyID != "" {
		tg.property = prop.Name
		tg.amount = money.Sum(prop.Rent, prop.Charges)
	}
	switch {
	case !requestedDue.IsZero():
		tg.due = requestedDue
	default:
		if due, err := duedate.NextFromString(t.EntryDate, t.PaymentMonths); err == nil {
			tg.due = due
		} else {
			tg.due = fallbackDue
		}
	}
	return tg
}

// RunScheduled reminds every candidate in the window that no earlier
// scheduled run reached for the same due date, so a missed day catches up
// and each due date is announced once. One run and one log per owner.
func (d *Dispatcher) RunScheduled(ctx context.Context, now time.Time) ([]Result, error) {
	candidates, err := d.selector.Candidates(ctx, now, "")
	if err != nil {
		return nil, err
	}
	reminded, err := d.scheduledSends(ctx)
	if err != nil {
		return nil, err
	}

	byOwner := make(map[string][]target)
	skipped := 0
	for _, c := range candidates {
		due, err := duedate.Parse(c.DueDate)
		if err != nil {
			continue
		}
		if reminded[sendKey(c.OwnerID, c.TenantID, c.DueDate)] {
			skipped++
			continue
		}
		byOwner[c.OwnerID] = append(byOwner[c.OwnerID], target{
			tenantID: c.TenantID,
			name:     c.TenantName,
			email:    c.TenantEmail,
			property: c.PropertyName,
			amount:   decimal.NewFromFloat(c.Amount),
			due:      due,
		})
	}

	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	results := make([]Result, 0, len(owners))
	for _, owner := range owners {
		targets := byOwner[owner]
		res, err := d.dispatch(ctx, owner, model.DispatchScheduled, DefaultTemplate, targets, targets[0].due)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	d.logger.WithFields(logging.Fields{
		"owners":     len(owners),
		"candidates": len(candidates),
		"already":    skipped,
	}).Info("Scheduled reminder run finished")
	return results, nil
}

// scheduledSends indexes the successful scheduled sends of every owner by
// tenant and due date. Failed sends are left out so the next run retries them.
func (d *Dispatcher) scheduledSends(ctx context.Context) (map[string]bool, error) {
	logs, err := d.store.ListReminderLogs(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	sent := make(map[string]bool)
	for _, entry := range logs {
		if entry.Mode != model.DispatchScheduled {
			continue
		}
		for _, r := range entry.Results {
			if r.Status != model.DispatchSent {
				continue
			}
			due := r.DueDate
			if due == "" {
				due = entry.DueDate
			}
			sent[sendKey(entry.OwnerID, r.TenantID, due)] = true
		}
	}
	return sent, nil
}

func sendKey(owner, tenantID, due string) string {
	return owner + "|" + tenantID + "|" + due
}

// dispatch sends to every target concurrently, waits for all of them and
// writes exactly one log. A cancelled ctx writes nothing.
func (d *Dispatcher) dispatch(ctx context.Context, owner string, mode model.DispatchMode, template string, targets []target, logDue time.Time) (Result, error) {
	results := make([]model.DispatchResult, len(targets))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, tg := range targets {
		if tg.failure != "" {
			results[i] = model.DispatchResult{TenantID: tg.tenantID, TenantEmail: tg.email, DueDate: isoOrEmpty(tg.due), Status: model.DispatchFailed, Message: tg.failure}
			continue
		}
		g.Go(func() error {
			results[i] = d.deliver(ctx, template, tg)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		d.logger.WithField("owner_id", owner).Warn("Reminder run interrupted, no log written")
		return Result{}, err
	}

	sent := 0
	for _, r := range results {
		if r.Status == model.DispatchSent {
			sent++
		}
	}
	res := Result{
		OwnerID: owner,
		Mode:    mode,
		Total:   len(targets),
		Sent:    sent,
		Failed:  len(targets) - sent,
		DueDate: duedate.FormatISO(logDue),
		Results: results,
	}
	metrics.RemindersSent.WithLabelValues(string(mode)).Add(float64(res.Sent))
	metrics.RemindersFailed.WithLabelValues(string(mode)).Add(float64(res.Failed))

	entry := model.ReminderLog{
		OwnerID:         owner,
		Mode:            mode,
		Total:           res.Total,
		Sent:            res.Sent,
		Failed:          res.Failed,
		DueDate:         res.DueDate,
		TemplatePreview: preview(template),
		CreatedAt:       d.cfg.Now().UTC(),
		Results:         results,
	}
	id, err := d.store.AppendReminderLog(ctx, entry)
	if err != nil {
		d.logger.WithError(err).WithFields(logging.Fields{
			"owner_id": owner,
			"mode":     mode,
			"sent":     res.Sent,
		}).Error("Failed to write reminder log")
		return res, nil
	}
	res.LogID = id
	metrics.DispatchRuns.WithLabelValues(string(mode)).Inc()

	d.logger.WithFields(logging.Fields{
		"owner_id": owner,
		"mode":     mode,
		"log_id":   id,
		"total":    res.Total,
		"sent":     res.Sent,
		"failed":   res.Failed,
	}).Info("Reminder run logged")
	return res, nil
}

func (d *Dispatcher) deliver(ctx context.Context, template string, tg target) model.DispatchResult {
	result := model.DispatchResult{TenantID: tg.tenantID, TenantEmail: tg.email, DueDate: isoOrEmpty(tg.due)}

	msg := compose(template, tg, d.cfg.AppURL)
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	if err := d.mail.Send(sendCtx, msg); err != nil {
		result.Status = model.DispatchFailed
		result.Message = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			result.Message = failTimeout
		}
		d.logger.WithError(err).WithField("tenant_id", tg.tenantID).Warn("Reminder send failed")
		return result
	}
	result.Status = model.DispatchSent
	return result
}

// History returns the newest logs of ownerID (all owners when blank). limit
// is clamped to 1..50.
func (d *Dispatcher) History(ctx context.Context, ownerID string, limit int) ([]model.ReminderLog, error) {
	return d.store.ListReminderLogs(ctx, strings.TrimSpace(ownerID), ClampHistoryLimit(limit))
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 50
)

func ClampHistoryLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func (d *Dispatcher) today() time.Time {
	return d.selector.Today(d.cfg.Now())
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func earliestDue(targets []target, fallback time.Time) time.Time {
	var earliest time.Time
	for _, tg := range targets {
		if tg.due.IsZero() {
			continue
		}
		if earliest.IsZero() || tg.due.Before(earliest) {
			earliest = tg.due
		}
	}
	if earliest.IsZero() {
		return fallback
	}
	return earliest
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return duedate.FormatISO(t)
}

func preview(template string) string {
	runes := []rune(template)
	if len(runes) > previewRunes {
		return string(runes[:previewRunes])
	}
	return template
}
