// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	Register()
	assert.NotPanics(t, Register)
}

func TestCountersExposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(APIRequests, CacheLookups, StatusTransitions)

	APIRequests.WithLabelValues("S2", "details", "ok").Inc()
	CacheLookups.WithLabelValues("hit").Add(3)
	StatusTransitions.WithLabelValues("filtered2", "expanded").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			names[f.GetName()] += m.GetCounter().GetValue()
		}
	}
	assert.GreaterOrEqual(t, names["snowball_api_requests_total"], 1.0)
	assert.GreaterOrEqual(t, names["snowball_cache_lookups_total"], 3.0)
	assert.GreaterOrEqual(t, names["snowball_status_transitions_total"], 1.0)
}
