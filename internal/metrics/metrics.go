// Package metrics holds the Prometheus collectors for authentication outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// AuthOperations counts auth core calls by operation and outcome.
// Outcome is "success", "error", or the failure kind (e.g. "invalid_credentials").
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ipregistry_auth_operations_total",
		Help: "Total number of authentication operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// AccountLockouts counts transitions into the locked state.
var AccountLockouts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ipregistry_account_lockouts_total",
		Help: "Total number of accounts locked after repeated failed logins",
	},
)

// RegisterMetrics registers the collectors with reg. Panics on duplicate registration.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(AccountLockouts)
}

// RecordAuthOperation increments the operation counter.
func RecordAuthOperation(operation, outcome string) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordLockout increments the lockout counter.
func RecordLockout() {
	AccountLockouts.Inc()
}
