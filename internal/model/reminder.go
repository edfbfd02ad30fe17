// internal/model/reminder.go
package model

import "time"

// ReminderCandidate is computed on every query and never stored.
type ReminderCandidate struct {
	TenantID        string  `json:"tenantId"`
	TenantName      string  `json:"tenantName"`
	TenantEmail     string  `json:"tenantEmail"`
	OwnerID         string  `json:"ownerId"`
	PropertyName    string  `json:"propertyName"`
	Amount          float64 `json:"amount"`
	AmountFormatted string  `json:"amountFormatted"`
	DueDate         string  `json:"dueDate"`
	DaysUntilDue    int     `json:"daysUntilDue"`
	PaymentMonths   int     `json:"paymentMonths"`
}

type DispatchMode string

const (
	DispatchManual    DispatchMode = "manual"
	DispatchScheduled DispatchMode = "scheduled"
)

type DispatchStatus string

const (
	DispatchSent   DispatchStatus = "sent"
	DispatchFailed DispatchStatus = "failed"
)

// DispatchResult is the outcome for one targeted tenant.
type DispatchResult struct {
	TenantID    string         `json:"tenantId"`
	TenantEmail string         `json:"tenantEmail,omitempty"`
	DueDate     string         `json:"dueDate,omitempty"`
	Status      DispatchStatus `json:"status"`
	Message     string         `json:"message,omitempty"`
}

// ReminderLog records one dispatch run. Logs are append-only.
type ReminderLog struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"ownerId"`
	Mode            DispatchMode     `json:"mode"`
	Total           int              `json:"total"`
	Sent            int              `json:"sent"`
	Failed          int              `json:"failed"`
	DueDate         string           `json:"dueDate,omitempty"`
	TemplatePreview string           `json:"templatePreview,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	Results         []DispatchResult `json:"results,omitempty"`
}
