package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "schooldesk"

// Metrics holds the application counters, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	Admissions          prometheus.Counter
	PaymentsRecorded    prometheus.Counter
	PaymentAmount       prometheus.Counter
	SyncRequests        *prometheus.CounterVec
	DriveBackupFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Admissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Number of students admitted.",
		}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_payments_total",
			Help:      "Number of fee payments recorded.",
		}),
		PaymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_payment_amount_total",
			Help:      "Sum of recorded fee payment amounts.",
		}),
		SyncRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "requests_total",
			Help:      "Remote sync requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		DriveBackupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "drive_backup_failures_total",
			Help:      "Failed drive backup notifications.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Admissions,
		m.PaymentsRecorded,
		m.PaymentAmount,
		m.SyncRequests,
		m.DriveBackupFailures,
	)
	return m
}

// ObservePayment counts one recorded payment of amount.
func (m *Metrics) ObservePayment(amount float64) {
	if m == nil {
		return
	}
	m.PaymentsRecorded.Inc()
	if amount > 0 {
		m.PaymentAmount.Add(amount)
	}
}

func (m *Metrics) ObserveAdmission() {
	if m == nil {
		return
	}
	m.Admissions.Inc()
}

// ObserveSync counts a sync request; outcome is "ok" when err is nil.
func (m *Metrics) ObserveSync(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SyncRequests.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveDriveBackupFailure() {
	if m == nil {
		return
	}
	m.DriveBackupFailures.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
