package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

const namespace = "statsgate"

// Metrics 监控指标收集器，导出 Prometheus 指标并保留进程内快照
type Metrics struct {
	requests           *prometheus.CounterVec
	credentialAttempts *prometheus.CounterVec
	planAttempts       *prometheus.CounterVec
	bridgeFailures     *prometheus.CounterVec
	resolveDuration    *prometheus.HistogramVec
	probeResources     *prometheus.CounterVec

	mu            sync.RWMutex
	requestCount  int64
	fallbackCount int64
	sourceCount   map[string]int64
	totalDuration time.Duration
	startTime     time.Time
}

// NewMetrics 创建监控指标收集器并注册到 reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Resolved dashboard requests by action and source",
		}, []string{"action", "source"}),
		credentialAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_attempts_total",
			Help:      "Connection attempts by outcome",
		}, []string{"outcome"}),
		planAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_attempts_total",
			Help:      "Query plan executions by plan and outcome",
		}, []string{"plan", "outcome"}),
		bridgeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_failures_total",
			Help:      "External computation bridge failures by reason",
		}, []string{"reason"}),
		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "End-to-end resolution latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"action"}),
		probeResources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_resources",
			Help:      "Probed optional resources by state",
		}, []string{"state"}),
		sourceCount: make(map[string]int64),
		startTime:   time.Now(),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.requests, m.credentialAttempts, m.planAttempts,
			m.bridgeFailures, m.resolveDuration, m.probeResources,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// CredentialAttempt 记录凭据尝试
func (m *Metrics) CredentialAttempt(outcome string) {
	m.credentialAttempts.WithLabelValues(outcome).Inc()
}

// ProbeResource 记录资源探测
func (m *Metrics) ProbeResource(state string) {
	m.probeResources.WithLabelValues(state).Inc()
}

// PlanAttempt 记录计划执行
func (m *Metrics) PlanAttempt(plan, outcome string) {
	m.planAttempts.WithLabelValues(plan, outcome).Inc()
}

// BridgeFailure 记录桥接失败
func (m *Metrics) BridgeFailure(reason string) {
	m.bridgeFailures.WithLabelValues(reason).Inc()
}

// Request 记录一次请求
func (m *Metrics) Request(action, source string, duration time.Duration) {
	m.requests.WithLabelValues(action, source).Inc()
	m.resolveDuration.WithLabelValues(action).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestCount++
	m.totalDuration += duration
	m.sourceCount[source]++
	if source == domain.SourceEmergencyFallback {
		m.fallbackCount++
	}
}

// Snapshot 指标快照
type Snapshot struct {
	Requests    int64            `json:"requests"`
	Fallbacks   int64            `json:"fallbacks"`
	Sources     map[string]int64 `json:"sources"`
	AvgDuration time.Duration    `json:"avg_duration_ns"`
	Uptime      time.Duration    `json:"uptime_ns"`
}

// GetSnapshot 获取指标快照
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avg time.Duration
	if m.requestCount > 0 {
		avg = m.totalDuration / time.Duration(m.requestCount)
	}

	sources := make(map[string]int64, len(m.sourceCount))
	for k, v := range m.sourceCount {
		sources[k] = v
	}

	return Snapshot{
		Requests:    m.requestCount,
		Fallbacks:   m.fallbackCount,
		Sources:     sources,
		AvgDuration: avg,
		Uptime:      time.Since(m.startTime),
	}
}
