// internal/model/payment.go
package model

import "time"

type SessionStatus string

const (
	SessionPaid    SessionStatus = "paid"
	SessionPending SessionStatus = "pending"
	SessionOther   SessionStatus = "other"
)

// Metadata keys written on every checkout session.
const (
	MetaTenantID      = "tenantId"
	MetaOwnerID       = "ownerId"
	MetaPropertyID    = "propertyId"
	MetaPaymentMonths = "paymentMonths"
	MetaTenantName    = "tenantName"
	MetaTenantEmail   = "tenantEmail"
	MetaPropertyName  = "propertyName"
	MetaDueDate       = "dueDate"
)

// CheckoutSession is a payment-provider session as seen by this service.
type CheckoutSession struct {
	ID        string            `json:"id"`
	Status    SessionStatus     `json:"status"`
	Metadata  map[string]string `json:"metadata"`
	Amount    float64           `json:"amount"`
	Currency  string            `json:"currency"`
	CreatedAt time.Time         `json:"createdAt"`
}

// PaymentStatus is the reconciled status of one tenant.
type PaymentStatus struct {
	TenantID      string        `json:"tenantId"`
	Status        SessionStatus `json:"status"`
	SessionID     string        `json:"sessionId"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency,omitempty"`
	PropertyID    string        `json:"propertyId,omitempty"`
	PaymentMonths string        `json:"paymentMonths,omitempty"`
	DueDate       string        `json:"dueDate,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}
