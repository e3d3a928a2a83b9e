package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrDecr(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric(ActiveConnections)
	su.Run()
	defer su.Stop()

	su.Incr(ActiveConnections)
	su.Incr(ActiveConnections)
	su.Decr(ActiveConnections)

	assert.Eventually(t, func() bool {
		return su.Snapshot()[ActiveConnections] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSnapshot(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric(OrdersCreated)
	su.RegisterMetric(BroadcastsSent)

	snapshot := su.Snapshot()

	// Uptime is a Func metric and must not appear in the integer snapshot
	assert.Equal(t, map[string]int64{
		OrdersCreated:  0,
		BroadcastsSent: 0,
	}, snapshot)
}

func TestExpvarHandler(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.RegisterMetric(OrdersCreated)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var data map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&data))
	assert.Contains(t, data, OrdersCreated)
	assert.Contains(t, data, "Uptime")
}
