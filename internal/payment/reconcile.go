package payment

import (
	"context"
	"sort"
	"strings"

	"rent-reminder/internal/apperr"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/model"
)

const (
	msgOwnerRequired = "L'identifiant du propriétaire est requis."
	msgListFailed    = "Impossible de récupérer l'historique des paiements."
)

type HistoryQuery struct {
	OwnerID    string
	TenantID   string
	PropertyID string
}

// Reconciler turns provider sessions into one status per tenant.
type Reconciler struct {
	provider SessionProvider
	logger   logging.Logger
}

func NewReconciler(provider SessionProvider, logger logging.Logger) *Reconciler {
	return &Reconciler{provider: provider, logger: logger}
}

// Reconcile lists the owner's sessions, keeps those matching every given
// identifier and reports the latest session per tenant, newest first. A
// tenant is paid when its latest session is paid or another session for the
// same period (due date and months) is.
func (r *Reconciler) Reconcile(ctx context.Context, q HistoryQuery) ([]model.PaymentStatus, error) {
	q.OwnerID = strings.TrimSpace(q.OwnerID)
	q.TenantID = strings.TrimSpace(q.TenantID)
	q.PropertyID = strings.TrimSpace(q.PropertyID)
	if q.OwnerID == "" {
		return nil, apperr.Validation(msgOwnerRequired)
	}

	sessions, err := r.provider.ListSessions(ctx, SessionFilter{OwnerID: q.OwnerID, TenantID: q.TenantID})
	if err != nil {
		r.logger.WithError(err).WithField("owner_id", q.OwnerID).Error("Failed to list checkout sessions")
		return nil, apperr.Collaborator(msgListFailed, err)
	}

	byTenant := make(map[string][]model.CheckoutSession)
	for _, s := range sessions {
		if !matches(s.Metadata, q) {
			continue
		}
		tenantID := s.Metadata[model.MetaTenantID]
		byTenant[tenantID] = append(byTenant[tenantID], s)
	}

	statuses := make([]model.PaymentStatus, 0, len(byTenant))
	for tenantID, group := range byTenant {
		statuses = append(statuses, classify(tenantID, group))
	}
	sort.Slice(statuses, func(i, j int) bool {
		if !statuses[i].CreatedAt.Equal(statuses[j].CreatedAt) {
			return statuses[i].CreatedAt.After(statuses[j].CreatedAt)
		}
		return statuses[i].TenantID < statuses[j].TenantID
	})
	return statuses, nil
}

func matches(meta map[string]string, q HistoryQuery) bool {
	if meta[model.MetaTenantID] == "" || meta[model.MetaOwnerID] != q.OwnerID {
		return false
	}
	if q.TenantID != "" && meta[model.MetaTenantID] != q.TenantID {
		return false
	}
	if q.PropertyID != "" && meta[model.MetaPropertyID] != q.PropertyID {
		return false
	}
	return true
}

func periodKey(meta map[string]string) string {
	return meta[model.MetaDueDate] + "|" + meta[model.MetaPaymentMonths]
}

func classify(tenantID string, group []model.CheckoutSession) model.PaymentStatus {
	sort.Slice(group, func(i, j int) bool {
		if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
			return group[i].CreatedAt.After(group[j].CreatedAt)
		}
		return group[i].ID > group[j].ID
	})
	latest := group[0]

	status := model.SessionPending
	if latest.Status == model.SessionPaid {
		status = model.SessionPaid
	} else {
		period := periodKey(latest.Metadata)
		for _, s := range group[1:] {
			if s.Status == model.SessionPaid && periodKey(s.Metadata) == period {
				status = model.SessionPaid
				break
			}
		}
	}

	return model.PaymentStatus{
		TenantID:      tenantID,
		Status:        status,
		SessionID:     latest.ID,
		Amount:        latest.Amount,
		Currency:      latest.Currency,
		PropertyID:    latest.Metadata[model.MetaPropertyID],
		PaymentMonths: latest.Metadata[model.MetaPaymentMonths],
		DueDate:       latest.Metadata[model.MetaDueDate],
		CreatedAt:     latest.CreatedAt,
	}
}
