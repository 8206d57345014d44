package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)
	m.ObserveFetch("games", "ok")
	m.ObserveDetected("new", 2)
	m.ObserveDelivery("new", nil)
	m.ObserveDelivery("new", errors.New("forbidden"))
	m.ObservePipeline("games", 150*time.Millisecond, nil)
	m.ObserveTickDropped("monitor")
	m.ObserveCommand("gamelist", nil)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "manifest_watch_fetch_total")
	assert.Contains(t, names, "manifest_watch_detected_items_total")
	assert.Contains(t, names, "manifest_watch_deliveries_total")
	assert.Contains(t, names, "manifest_watch_pipeline_duration_seconds")
	assert.Contains(t, names, "manifest_watch_ticks_dropped_total")
	assert.Contains(t, names, "manifest_watch_commands_total")

	for _, f := range families {
		if f.GetName() != "manifest_watch_deliveries_total" {
			continue
		}
		assert.Len(t, f.GetMetric(), 2)
		for _, metric := range f.GetMetric() {
			assert.Equal(t, 1.0, metric.GetCounter().GetValue())
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("games", "ok")
		m.ObserveDelivery("new", nil)
		m.ObservePipeline("games", time.Second, nil)
	})
}

func TestHandler_Healthz(t *testing.T) {
	health := NewHealth()
	health.SetConnected(true)
	health.MarkRun("games")

	srv := httptest.NewServer(Handler(ServerOptions{Health: health, Gatherer: prometheus.NewRegistry()}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report HealthReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "ok", report.Status)
	assert.True(t, report.Connected)
	assert.Contains(t, report.LastRun, "games")
}

func TestHandler_MetricsAndRoot(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry).ObserveFetch("status", "ok")

	srv := httptest.NewServer(Handler(ServerOptions{Gatherer: registry}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "manifest_watch_fetch_total")

	root, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	root.Body.Close()
	assert.Equal(t, http.StatusOK, root.StatusCode)
}
