// internal/model/tenant.go
package model

import "strings"

type TenantStatus string

const (
	TenantPending TenantStatus = "pending"
	TenantActive  TenantStatus = "active"
	TenantEnded   TenantStatus = "ended"
	TenantLate    TenantStatus = "late"
)

// Tenant is a renter-of-record. EntryDate is kept as written by the client
// (YYYY-MM-DD or DD/MM/YYYY); the due date is always derived from it.
type Tenant struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	Status        TenantStatus `json:"status"`
	PropertyID    string       `json:"propertyId,omitempty"`
	OwnerID       string       `json:"ownerId"`
	EntryDate     string       `json:"entryDate"`
	PaymentMonths int          `json:"paymentMonths"`
	Note          string       `json:"note,omitempty"`
}

// Normalize fills defaults for records written by older clients.
func (t *Tenant) Normalize(defaultOwner string) {
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	if t.Status == "" {
		t.Status = TenantPending
	}
	if t.OwnerID == "" {
		t.OwnerID = defaultOwner
	}
	if t.PaymentMonths < 0 {
		t.PaymentMonths = 0
	}
}
