package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"rent-reminder/internal/apperr"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/model"
)

const unavailable = "Le stockage des données est indisponible."

// Records reads and writes the service's typed records on top of a RecordStore.
// Store failures come back as apperr collaborator errors.
type Records struct {
	store        RecordStore
	defaultOwner string
	logger       logging.Logger
}

func NewRecords(store RecordStore, defaultOwner string, logger logging.Logger) *Records {
	return &Records{store: store, defaultOwner: defaultOwner, logger: logger}
}

// ListTenants returns every tenant ordered by id. Undecodable records are skipped.
func (r *Records) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	raw, err := r.store.List(ctx, ResourceTenants)
	if err != nil {
		return nil, apperr.Collaborator(unavailable, err)
	}
	tenants := make([]model.Tenant, 0, len(raw))
	for id, data := range raw {
		t, err := r.decodeTenant(id, data)
		if err != nil {
			r.logger.WithError(err).WithField("tenant_id", id).Warn("Skipping undecodable tenant record")
			continue
		}
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	return tenants, nil
}

func (r *Records) GetTenant(ctx context.Context, id string) (model.Tenant, error) {
	data, err := r.store.Get(ctx, ResourceTenants, id)
	if errors.Is(err, ErrNotFound) {
		return model.Tenant{}, apperr.NotFound("Locataire introuvable.")
	}
	if err != nil {
		return model.Tenant{}, apperr.Collaborator(unavailable, err)
	}
	t, err := r.decodeTenant(id, data)
	if err != nil {
		return model.Tenant{}, apperr.Collaborator(unavailable, err)
	}
	return t, nil
}

// ListProperties returns every property keyed by id.
func (r *Records) ListProperties(ctx context.Context) (map[string]model.Property, error) {
	raw, err := r.store.List(ctx, ResourceProperties)
	if err != nil {
		return nil, apperr.Collaborator(unavailable, err)
	}
	props := make(map[string]model.Property, len(raw))
	for id, data := range raw {
		var p model.Property
		if err := json.Unmarshal(data, &p); err != nil {
			r.logger.WithError(err).WithField("property_id", id).Warn("Skipping undecodable property record")
			continue
		}
		p.ID = id
		p.Normalize(r.defaultOwner)
		props[id] = p
	}
	return props, nil
}

// SetTenantStatus patches only the status field of a tenant.
func (r *Records) SetTenantStatus(ctx context.Context, id string, status model.TenantStatus) error {
	err := r.store.Patch(ctx, ResourceTenants, id, map[string]any{"status": status})
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Locataire introuvable.")
	}
	if err != nil {
		return apperr.Collaborator(unavailable, err)
	}
	return nil
}

// AppendReminderLog stores a new log entry and returns its id. Logs are
// never patched afterwards.
func (r *Records) AppendReminderLog(ctx context.Context, entry model.ReminderLog) (string, error) {
	entry.ID = ""
	id, err := r.store.Create(ctx, ResourceReminderLogs, entry)
	if err != nil {
		return "", apperr.Collaborator(unavailable, err)
	}
	return id, nil
}

// ListReminderLogs returns the newest logs first, filtered by owner unless
// ownerID is blank, at most limit entries.
func (r *Records) ListReminderLogs(ctx context.Context, ownerID string, limit int) ([]model.ReminderLog, error) {
	raw, err := r.store.List(ctx, ResourceReminderLogs)
	if err != nil {
		return nil, apperr.Collaborator(unavailable, err)
	}
	logs := make([]model.ReminderLog, 0, len(raw))
	for id, data := range raw {
		var entry model.ReminderLog
		if err := json.Unmarshal(data, &entry); err != nil {
			r.logger.WithError(err).WithField("log_id", id).Warn("Skipping undecodable reminder log")
			continue
		}
		entry.ID = id
		if entry.OwnerID == "" {
			entry.OwnerID = r.defaultOwner
		}
		if ownerID != "" && entry.OwnerID != ownerID {
			continue
		}
		logs = append(logs, entry)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].CreatedAt.After(logs[j].CreatedAt)
		}
		return logs[i].ID < logs[j].ID
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (r *Records) decodeTenant(id string, data json.RawMessage) (model.Tenant, error) {
	var t model.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return model.Tenant{}, err
	}
	t.ID = id
	t.Normalize(r.defaultOwner)
	return t, nil
}
