package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"credential-ledger/models"
)

// Metrics holds the Prometheus collectors for the ledger and its components
type Metrics struct {
	Operations        *prometheus.CounterVec
	Events            *prometheus.CounterVec
	LedgerHeight      prometheus.Gauge
	CredentialsIssued prometheus.Counter
	Verifications     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when it is non-nil
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_operations_total",
			Help: "Submitted ledger operations, labeled by operation and result",
		}, []string{"op", "result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_events_total",
			Help: "Structured events emitted by committed operations, labeled by type",
		}, []string{"type"}),
		LedgerHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "credledger_ledger_height",
			Help: "Sequence number of the latest receipt",
		}),
		CredentialsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credledger_credentials_issued_total",
			Help: "Total number of credentials minted",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credledger_verifications_total",
			Help: "Verification verdicts served, labeled by outcome",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Events, m.LedgerHeight, m.CredentialsIssued, m.Verifications)
	}
	return m
}

// ObserveReceipt is installed as a ledger observer
func (m *Metrics) ObserveReceipt(r *models.Receipt) {
	result := "success"
	if !r.Success {
		result = "failure"
	}
	m.Operations.WithLabelValues(r.Op, result).Inc()
	m.LedgerHeight.Set(float64(r.Seq))
	for _, evt := range r.Events {
		m.Events.WithLabelValues(string(evt.Type)).Inc()
		if evt.Type == models.EventCredentialIssued {
			m.CredentialsIssued.Inc()
		}
	}
}

// ObserveVerdict is installed as a verifier observer
func (m *Metrics) ObserveVerdict(v models.Verdict) {
	outcome := "valid"
	switch {
	case v.IsValid:
	case !v.Exists:
		outcome = "missing"
	case v.IsRevoked:
		outcome = "revoked"
	case v.IsExpired:
		outcome = "expired"
	default:
		outcome = "issuer_not_accredited"
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}
