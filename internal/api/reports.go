package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Collector/internal/ingest"
	"github.com/MikeSquared-Agency/Collector/internal/reporting"
	"github.com/MikeSquared-Agency/Collector/internal/scoring"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

type ReportsHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewReportsHandler(s store.Store, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{store: s, logger: logger}
}

func (h *ReportsHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	cases, err := h.store.ListCases(r.Context(), store.CaseFilter{})
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reporting.Build(cases, time.Now().UTC()))
}

func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.CaseStats(r.Context())
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type PreviewResponse struct {
	scoring.Assessment
	Version   string                `json:"version"`
	Breakdown scoring.Breakdown     `json:"breakdown"`
	Profile   scoring.AgencyProfile `json:"profile"`
}

// Preview scores hypothetical case attributes without storing anything.
func Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := ingest.ParseAmount(q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := ingest.ParseDaysOverdue(q.Get("days_overdue"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	contacts, err := ingest.ParsePreviousContacts(q.Get("previous_contacts"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := scoring.Evaluate(amount, days, contacts)
	writeJSON(w, http.StatusOK, PreviewResponse{
		Assessment: a,
		Version:    scoring.Version,
		Breakdown:  scoring.Explain(amount, days, contacts),
		Profile:    scoring.Profile(a.Agency),
	})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scoring_version": scoring.Version})
}
