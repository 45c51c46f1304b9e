package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterMetrics(reg)

	RecordAuthOperation("register", OutcomeSuccess)
	RecordLockout()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ipregistry_auth_operations_total")
	assert.Contains(t, names, "ipregistry_account_lockouts_total")

	assert.Panics(t, func() { RegisterMetrics(reg) }, "duplicate registration")
}
