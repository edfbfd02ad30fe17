package reminder

import (
	"context"
	"time"

	"rent-reminder/internal/duedate"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/metrics"
	"rent-reminder/internal/model"
)

type StatusWriter interface {
	SetTenantStatus(ctx context.Context, id string, status model.TenantStatus) error
}

type LateReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

// LateChecker marks tenants late once their due date has passed and back to
// active when the due date moves forward again (more months paid).
type LateChecker struct {
	dir    Directory
	writer StatusWriter
	loc    *time.Location
	logger logging.Logger
}

func NewLateChecker(dir Directory, writer StatusWriter, loc *time.Location, logger logging.Logger) *LateChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &LateChecker{dir: dir, writer: writer, loc: loc, logger: logger}
}

// Run checks every tenant once. Ended leases and unparsable entry dates are
// left alone. A failed patch is logged and the pass continues.
func (c *LateChecker) Run(ctx context.Context, now time.Time) (LateReport, error) {
	tenants, err := c.dir.ListTenants(ctx)
	if err != nil {
		return LateReport{}, err
	}
	today := duedate.Day(now.In(c.loc))

	var report LateReport
	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		if t.Status == model.TenantEnded {
			continue
		}
		due, err := duedate.NextFromString(t.EntryDate, t.PaymentMonths)
		if err != nil {
			continue
		}

		var next model.TenantStatus
		switch {
		case due.Before(today) && t.Status != model.TenantLate:
			next = model.TenantLate
		case !due.Before(today) && t.Status == model.TenantLate:
			next = model.TenantActive
		default:
			continue
		}

		if err := c.writer.SetTenantStatus(ctx, t.ID, next); err != nil {
			c.logger.WithError(err).WithField("tenant_id", t.ID).Error("Failed to update tenant status")
			continue
		}
		report.Updated++
		metrics.TenantStatusChanges.WithLabelValues(string(next)).Inc()
	}

	c.logger.WithFields(logging.Fields{
		"checked": report.Checked,
		"updated": report.Updated,
	}).Info("Late payment check finished")
	return report, nil
}
