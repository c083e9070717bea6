package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCacheHits_IncrementsPerStageLabel(t *testing.T) {
	before := testutil.ToFloat64(CacheHits.WithLabelValues("tokens"))
	CacheHits.WithLabelValues("tokens").Inc()
	after := testutil.ToFloat64(CacheHits.WithLabelValues("tokens"))
	assert.Equal(t, before+1, after)
}

func TestJITCompiles_IsARegisteredCounter(t *testing.T) {
	before := testutil.ToFloat64(JITCompiles)
	JITCompiles.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(JITCompiles))
}

func TestMachinesLive_GaugeTracksSetValue(t *testing.T) {
	MachinesLive.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(MachinesLive))
}
