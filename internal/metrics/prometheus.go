package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RemindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_reminders_sent_total",
			Help: "Total number of reminder mails accepted by the mail transport",
		},
		[]string{"mode"},
	)

	RemindersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_reminders_failed_total",
			Help: "Total number of reminder targets that could not be mailed",
		},
		[]string{"mode"},
	)

	DispatchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_reminder_dispatch_runs_total",
			Help: "Total number of dispatch runs that wrote a reminder log",
		},
		[]string{"mode"},
	)

	CheckoutSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_checkout_sessions_total",
			Help: "Checkout session requests by result",
		},
		[]string{"result"},
	)

	TenantStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_tenant_status_changes_total",
			Help: "Tenant status patches made by the late-payment job",
		},
		[]string{"status"},
	)

	OutboxProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_outbox_processed_total",
			Help: "Total number of outbox jobs handled by workers",
		},
		[]string{"result"},
	)

	WorkerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_outbox_active_workers",
			Help: "Number of running outbox worker goroutines",
		},
	)

	OutboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_outbox_queue_depth",
			Help: "Current RabbitMQ depth of the mail outbox",
		},
	)
)

var once sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RemindersSent,
			RemindersFailed,
			DispatchRuns,
			CheckoutSessions,
			TenantStatusChanges,
			OutboxProcessed,
			WorkerActive,
			OutboxDepth,
		)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
