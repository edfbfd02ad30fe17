package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Resource names used by the service.
const (
	ResourceTenants      = "tenants"
	ResourceProperties   = "properties"
	ResourceReminderLogs = "reminder-logs"
)

// ErrNotFound is returned by Get and Patch when the record does not exist.
var ErrNotFound = errors.New("record not found")

// RecordStore is a key-value record store addressed by resource name and id.
// Writes to a single record are atomic; nothing else is guaranteed.
type RecordStore interface {
	Get(ctx context.Context, resource, id string) (json.RawMessage, error)
	List(ctx context.Context, resource string) (map[string]json.RawMessage, error)
	// Create stores record under a newly assigned id and returns it.
	Create(ctx context.Context, resource string, record any) (string, error)
	// Patch merges fields into the top level of an existing record.
	Patch(ctx context.Context, resource, id string, fields map[string]any) error
	Delete(ctx context.Context, resource, id string) error
	Close() error
}

func mergeJSON(current json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := make(map[string]any)
	if len(current) > 0 {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return json.Marshal(doc)
}
