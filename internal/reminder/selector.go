// Package reminder selects tenants whose rent falls due soon and mails them
// reminders, logging every run.
package reminder

import (
	"context"
	"sort"
	"strings"
	"time"

	"rent-reminder/internal/duedate"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/model"
	"rent-reminder/internal/money"
)

// DefaultWindowDays is the lookahead used when none is configured.
const DefaultWindowDays = 7

// Directory is the read side of the record store the engine needs.
type Directory interface {
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	ListProperties(ctx context.Context) (map[string]model.Property, error)
}

// Upcoming is the answer to "who gets reminded next".
type Upcoming struct {
	TotalRecipients int                       `json:"totalRecipients"`
	DueDate         string                    `json:"dueDate"`
	ReminderDate    string                    `json:"reminderDate"`
	Reminders       []model.ReminderCandidate `json:"reminders"`
}

// Skip explains why a tenant was left out of the candidates.
type Skip struct {
	TenantID string
	Reason   string
}

const (
	reasonNoProperty      = "no linked property"
	reasonMissingProperty = "linked property not found"
	reasonBadEntryDate    = "unparsable entry date"
)

// SelectCandidates keeps active tenants with an email, an existing property and
// a due date in [today, today+windowDays]. The result is ordered by due date,
// then tenant name, then id. Tenants dropped for incomplete data are reported
// in skips; tenants that are simply not due or not eligible are not.
func SelectCandidates(tenants []model.Tenant, properties map[string]model.Property, today time.Time, windowDays int) ([]model.ReminderCandidate, []Skip) {
	today = duedate.Day(today)
	if windowDays < 0 {
		windowDays = 0
	}

	var (
		candidates []model.ReminderCandidate
		skips      []Skip
	)
	for _, t := range tenants {
		if t.Status != model.TenantActive || strings.TrimSpace(t.Email) == "" {
			continue
		}
		if t.PropertyID == "" {
			skips = append(skips, Skip{TenantID: t.ID, Reason: reasonNoProperty})
			continue
		}
		prop, ok := properties[t.PropertyID]
		if !ok {
			skips = append(skips, Skip{TenantID: t.ID, Reason: reasonMissingProperty})
			continue
		}
		due, err := duedate.NextFromString(t.EntryDate, t.PaymentMonths)
		if err != nil {
			skips = append(skips, Skip{TenantID: t.ID, Reason: reasonBadEntryDate})
			continue
		}
		days := duedate.DaysBetween(today, due)
		if days < 0 || days > windowDays {
			continue
		}
		candidates = append(candidates, candidate(t, prop, due, days))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.DueDate != b.DueDate {
			return a.DueDate < b.DueDate
		}
		if a.TenantName != b.TenantName {
			return a.TenantName < b.TenantName
		}
		return a.TenantID < b.TenantID
	})
	return candidates, skips
}

func candidate(t model.Tenant, prop model.Property, due time.Time, days int) model.ReminderCandidate {
	amount := money.Sum(prop.Rent, prop.Charges)
	return model.ReminderCandidate{
		TenantID:        t.ID,
		TenantName:      t.Name,
		TenantEmail:     t.Email,
		OwnerID:         t.OwnerID,
		PropertyName:    prop.Name,
		Amount:          amount.InexactFloat64(),
		AmountFormatted: money.Format(amount),
		DueDate:         duedate.FormatISO(due),
		DaysUntilDue:    days,
		PaymentMonths:   t.PaymentMonths,
	}
}

// Selector loads tenants and properties and applies SelectCandidates.
type Selector struct {
	dir        Directory
	windowDays int
	loc        *time.Location
	logger     logging.Logger
}

func NewSelector(dir Directory, windowDays int, loc *time.Location, logger logging.Logger) *Selector {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Selector{dir: dir, windowDays: windowDays, loc: loc, logger: logger}
}

func (s *Selector) WindowDays() int { return s.windowDays }

// Today is the current calendar day in the configured time zone.
func (s *Selector) Today(now time.Time) time.Time {
	return duedate.Day(now.In(s.loc))
}

// Candidates returns the ordered candidates for ownerID, or for every owner
// when ownerID is blank.
func (s *Selector) Candidates(ctx context.Context, now time.Time, ownerID string) ([]model.ReminderCandidate, error) {
	tenants, err := s.dir.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	props, err := s.dir.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	if ownerID != "" {
		owned := tenants[:0:0]
		for _, t := range tenants {
			if t.OwnerID == ownerID {
				owned = append(owned, t)
			}
		}
		tenants = owned
	}

	candidates, skips := SelectCandidates(tenants, props, s.Today(now), s.windowDays)
	for _, skip := range skips {
		s.logger.WithFields(logging.Fields{
			"tenant_id": skip.TenantID,
			"reason":    skip.Reason,
		}).Debug("Tenant skipped by reminder selection")
	}
	return candidates, nil
}

// Select builds the upcoming summary. DueDate is the earliest candidate due
// date, or the end of the current month when nobody is due; ReminderDate is
// one window before it.
func (s *Selector) Select(ctx context.Context, now time.Time, ownerID string) (Upcoming, error) {
	candidates, err := s.Candidates(ctx, now, ownerID)
	if err != nil {
		return Upcoming{}, err
	}

	today := s.Today(now)
	summary := duedate.EndOfMonth(today)
	if len(candidates) > 0 {
		if first, err := duedate.Parse(candidates[0].DueDate); err == nil {
			summary = first
		}
	}
	if candidates == nil {
		candidates = []model.ReminderCandidate{}
	}
	return Upcoming{
		TotalRecipients: len(candidates),
		DueDate:         duedate.FormatISO(summary),
		ReminderDate:    duedate.FormatISO(summary.AddDate(0, 0, -s.windowDays)),
		Reminders:       candidates,
	}, nil
}
