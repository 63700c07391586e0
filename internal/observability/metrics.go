package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for HTTP traffic and event processing.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	outcomeCount   map[string]int64
	deliverySucc   int64
	deliveryFail   int64
	prunedTokens   int64
	gatewayLatency time.Duration
	gatewayCalls   int64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Requests            map[string]int64 `json:"requests"`
	Errors              map[string]int64 `json:"errors"`
	Outcomes            map[string]int64 `json:"outcomes"`
	DeliveriesSuccess   int64            `json:"deliveriesSuccess"`
	DeliveriesFailure   int64            `json:"deliveriesFailure"`
	PrunedTokens        int64            `json:"prunedTokens"`
	GatewayCalls        int64            `json:"gatewayCalls"`
	GatewayAvgLatencyMs float64          `json:"gatewayAvgLatencyMs"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		outcomeCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordOutcome counts one processed event by its pipeline outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomeCount[outcome]++
}

// RecordDeliveries adds the result of one batched gateway call.
func (m *Metrics) RecordDeliveries(success, failure int, latency time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliverySucc += int64(success)
	m.deliveryFail += int64(failure)
	m.gatewayCalls++
	m.gatewayLatency += latency
}

// RecordPruned adds pruned token registrations.
func (m *Metrics) RecordPruned(n int) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunedTokens += int64(n)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		Requests:          copyCounts(m.requestCount),
		Errors:            copyCounts(m.errorCount),
		Outcomes:          copyCounts(m.outcomeCount),
		DeliveriesSuccess: m.deliverySucc,
		DeliveriesFailure: m.deliveryFail,
		PrunedTokens:      m.prunedTokens,
		GatewayCalls:      m.gatewayCalls,
	}
	if m.gatewayCalls > 0 {
		avg := m.gatewayLatency / time.Duration(m.gatewayCalls)
		snap.GatewayAvgLatencyMs = float64(avg) / float64(time.Millisecond)
	}
	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
