package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Collector/internal/auth"
	"github.com/MikeSquared-Agency/Collector/internal/broker"
	"github.com/MikeSquared-Agency/Collector/internal/ingest"
	"github.com/MikeSquared-Agency/Collector/internal/scoring"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

const maxListLimit = 1000

type CasesHandler struct {
	store          store.Store
	pipeline       *ingest.Pipeline
	broker         *broker.Broker
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewCasesHandler(s store.Store, p *ingest.Pipeline, b *broker.Broker, maxUploadBytes int64, logger *slog.Logger) *CasesHandler {
	return &CasesHandler{store: s, pipeline: p, broker: b, maxUploadBytes: maxUploadBytes, logger: logger}
}

type UploadResponse struct {
	BatchID        string                   `json:"batch_id"`
	CasesProcessed int                      `json:"cases_processed"`
	CasesRejected  int                      `json:"cases_rejected"`
	ModelVersion   string                   `json:"model_version"`
	Cases          []*store.Case            `json:"cases"`
	Errors         []ingest.ValidationError `json:"errors"`
}

// Upload ingests a CSV sent either as the "file" field of a multipart form or
// as the raw request body.
func (h *CasesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			if status := errorStatus(err); status == http.StatusRequestEntityTooLarge {
				writeErr(w, h.logger, err)
				return
			}
			writeError(w, http.StatusBadRequest, "multipart upload requires a file field")
			return
		}
		defer file.Close()
		src = file
	}

	uploadedBy := ""
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		uploadedBy = claims.Username
	}
	batch, err := h.pipeline.Ingest(r.Context(), src, uploadedBy)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		BatchID:        batch.ID.String(),
		CasesProcessed: batch.Accepted(),
		CasesRejected:  batch.Rejected(),
		ModelVersion:   scoring.Version,
		Cases:          batch.Cases,
		Errors:         batch.Errors,
	})
}

func (h *CasesHandler) Sample(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sample_debt_data.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ingest.SampleCSV())
}

// List returns cases in id order. Agency users only ever see their own
// agency's cases, whatever filter they ask for.
func (h *CasesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.CaseFilter

	if v := q.Get("agency"); v != "" {
		a, err := scoring.ParseAgency(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Agency = a
	}
	if v := q.Get("status"); v != "" {
		st, err := store.ParseStatus(v)
		if err != nil {
			writeErr(w, h.logger, err)
			return
		}
		filter.Status = &st
	}
	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	actor := actorFrom(r)
	if !actor.IsAdmin() {
		filter.Agency = actor.Agency
		if filter.Agency == "" {
			writeError(w, http.StatusForbidden, "no agency assigned to this account")
			return
		}
	}

	cases, err := h.store.ListCases(r.Context(), filter)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if cases == nil {
		cases = []*store.Case{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (h *CasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type StatusRequest struct {
	Status string `json:"status"`
}

func (h *CasesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.broker.UpdateStatus(r.Context(), actorFrom(r), id, req.Status)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CasesHandler) Reallocate(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.Reallocate(r.Context())
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type ExplainResponse struct {
	CaseID     int64                 `json:"case_id"`
	Version    string                `json:"version"`
	Breakdown  scoring.Breakdown     `json:"breakdown"`
	Assessment scoring.Assessment    `json:"assessment"`
	Profile    scoring.AgencyProfile `json:"profile"`
}

func (h *CasesHandler) Explain(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ExplainResponse{
		CaseID:     c.ID,
		Version:    scoring.Version,
		Breakdown:  scoring.Explain(c.Amount, c.DaysOverdue, c.PreviousContacts),
		Assessment: c.Assessment(),
		Profile:    scoring.Profile(c.AssignedTo),
	})
}

// loadCase fetches the case named in the URL. Cases outside an agency user's
// agency are reported as missing.
func (h *CasesHandler) loadCase(w http.ResponseWriter, r *http.Request) (*store.Case, bool) {
	id, ok := caseID(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.store.GetCase(r.Context(), id)
	if err != nil {
		writeErr(w, h.logger, err)
		return nil, false
	}
	if !actorFrom(r).CanAccess(c) {
		writeErr(w, h.logger, store.ErrNotFound)
		return nil, false
	}
	return c, true
}

func caseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return 0, false
	}
	return id, true
}

func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func actorFrom(r *http.Request) auth.Actor {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return auth.Actor{}
	}
	return claims.Actor()
}
