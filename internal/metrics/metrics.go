package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collector"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	IngestRows    *prometheus.CounterVec
	CasesIngested *prometheus.CounterVec
	StatusChanges *prometheus.CounterVec
	CasesByStatus *prometheus.GaugeVec
	CasesByAgency *prometheus.GaugeVec
	HTTPRequests  *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IngestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "CSV data rows processed, by result (accepted or rejected).",
		}, []string{"result"}),
		CasesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_ingested_total",
			Help:      "Cases created by ingestion, by assigned agency.",
		}, []string{"agency"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Case status updates, by new status.",
		}, []string{"status"}),
		CasesByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cases",
			Help:      "Cases currently held, by status.",
		}, []string{"status"}),
		CasesByAgency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cases_by_agency",
			Help:      "Cases currently held, by assigned agency.",
		}, []string{"agency"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests served, by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.IngestRows, m.CasesIngested, m.StatusChanges, m.CasesByStatus, m.CasesByAgency, m.HTTPRequests)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

func (m *Metrics) ObserveIngest(accepted, rejected int, byAgency map[string]int) {
	if m == nil {
		return
	}
	m.IngestRows.WithLabelValues("accepted").Add(float64(accepted))
	m.IngestRows.WithLabelValues("rejected").Add(float64(rejected))
	for agency, n := range byAgency {
		m.CasesIngested.WithLabelValues(agency).Add(float64(n))
	}
}

func (m *Metrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) SetCaseCounts(byStatus, byAgency map[string]int) {
	if m == nil {
		return
	}
	for status, n := range byStatus {
		m.CasesByStatus.WithLabelValues(status).Set(float64(n))
	}
	for agency, n := range byAgency {
		m.CasesByAgency.WithLabelValues(agency).Set(float64(n))
	}
}

func (m *Metrics) ObserveRequest(method string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Handler serves the registry the collectors were registered with, falling
// back to the default gatherer.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
