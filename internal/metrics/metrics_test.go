package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveIngest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveIngest(3, 1, map[string]int{"Digital Bot": 2, "Shark Recovery": 1})
	m.ObserveIngest(1, 0, map[string]int{"Digital Bot": 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.IngestRows.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestRows.WithLabelValues("rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CasesIngested.WithLabelValues("Digital Bot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CasesIngested.WithLabelValues("Shark Recovery")))
}

func TestSetCaseCountsOverwrites(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetCaseCounts(map[string]int{"Pending": 5}, map[string]int{"Digital Bot": 5})
	m.SetCaseCounts(map[string]int{"Pending": 2, "Paid": 3}, map[string]int{"Digital Bot": 5})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CasesByStatus.WithLabelValues("Pending")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CasesByStatus.WithLabelValues("Paid")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.CasesByAgency.WithLabelValues("Digital Bot")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIngest(1, 1, nil)
		m.ObserveStatusChange("Paid")
		m.SetCaseCounts(nil, nil)
		m.ObserveRequest(http.MethodGet, 200)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveStatusChange("Paid")
	m.ObserveRequest(http.MethodPut, http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `collector_status_changes_total{status="Paid"} 1`))
	assert.True(t, strings.Contains(body, `collector_http_requests_total{code="200",method="PUT"} 1`))
}
