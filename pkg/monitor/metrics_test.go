package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

func TestNewMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	// 重复注册同名指标应失败
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_Counters(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.CredentialAttempt(OutcomeFailure)
	m.CredentialAttempt(OutcomeSuccess)
	m.CredentialAttempt(OutcomeFailure)
	m.PlanAttempt("products+inventory_basic", OutcomeSuccess)
	m.BridgeFailure(domain.BridgeReasonTimeout)
	m.ProbeResource(ProbeAbsent)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.credentialAttempts.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.credentialAttempts.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planAttempts.WithLabelValues("products+inventory_basic", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bridgeFailures.WithLabelValues(domain.BridgeReasonTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probeResources.WithLabelValues(ProbeAbsent)))
}

func TestMetrics_Snapshot(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	m.Request("inventory", domain.SourceBridge, 100*time.Millisecond)
	m.Request("inventory", domain.SourceEmergencyFallback, 300*time.Millisecond)

	snap := m.GetSnapshot()
	assert.Equal(t, int64(2), snap.Requests)
	assert.Equal(t, int64(1), snap.Fallbacks)
	assert.Equal(t, int64(1), snap.Sources[domain.SourceBridge])
	assert.Equal(t, 200*time.Millisecond, snap.AvgDuration)
	assert.Positive(t, snap.Uptime)

	// 快照是副本
	snap.Sources[domain.SourceBridge] = 99
	assert.Equal(t, int64(1), m.GetSnapshot().Sources[domain.SourceBridge])
}

func TestMetrics_ConcurrentRequests(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Request("statistics", "statistics_basic", time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.GetSnapshot().Requests)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Same(t, m, OrNop(m))
}
