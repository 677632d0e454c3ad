package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range fam.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("kyc:verification:run").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("kyc:verification:run").End(boom), boom)

	job := "kyc:verification:run"
	assert.Equal(t, 1.0, counterValue(t, reg, "kycgate_jobs_total", map[string]string{"job": job, "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "kycgate_jobs_total", map[string]string{"job": job, "status": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "kycgate_jobs_failures_total", map[string]string{"job": job}))
}

func TestNilTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("job").End(boom), boom)
}
