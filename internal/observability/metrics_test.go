package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/events", "POST", 200, time.Millisecond)
	m.RecordRequest("/api/events", "POST", 200, time.Millisecond)
	m.RecordError("/api/tokens/register", "POST", "VALIDATION_FAILED")
	m.RecordOutcome("dispatched")
	m.RecordOutcome("irrelevant")
	m.RecordOutcome("dispatched")
	m.RecordDeliveries(3, 1, 10*time.Millisecond)
	m.RecordDeliveries(1, 0, 30*time.Millisecond)
	m.RecordPruned(1)
	m.RecordPruned(0)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/events|POST|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/tokens/register|POST|VALIDATION_FAILED"])
	assert.Equal(t, int64(2), snap.Outcomes["dispatched"])
	assert.Equal(t, int64(1), snap.Outcomes["irrelevant"])
	assert.Equal(t, int64(4), snap.DeliveriesSuccess)
	assert.Equal(t, int64(1), snap.DeliveriesFailure)
	assert.Equal(t, int64(1), snap.PrunedTokens)
	assert.Equal(t, int64(2), snap.GatewayCalls)
	assert.InDelta(t, 20.0, snap.GatewayAvgLatencyMs, 0.001)

	// snapshot maps are copies
	snap.Outcomes["dispatched"] = 100
	assert.Equal(t, int64(2), m.Snapshot().Outcomes["dispatched"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordOutcome("failed")
	m.RecordDeliveries(1, 1, time.Second)
	m.RecordPruned(2)
	assert.Empty(t, m.Snapshot().Outcomes)
}
