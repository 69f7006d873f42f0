package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/service"
	"github.com/scoutlens/scoutlens/internal/store"
)

// RunHandler exposes enrichment runs over HTTP. Create is synchronous:
// the run executes within the request and returns the full record.
type RunHandler struct {
	svc    *service.EnrichService
	runs   *store.RunStore
	logger *zap.Logger
}

func NewRunHandler(svc *service.EnrichService, runs *store.RunStore, logger *zap.Logger) *RunHandler {
	return &RunHandler{svc: svc, runs: runs, logger: logger}
}

type createRunRequest struct {
	Resume domain.ResumeProfile `json:"resume"`
}

func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Resume.BasicInfo.Name) == "" {
		writeError(w, http.StatusBadRequest, "resume.basic_info.name is required")
		return
	}

	record, err := h.svc.Run(r.Context(), req.Resume)
	if err != nil {
		h.logger.Error("enrichment run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enrichment run failed")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotImplemented, "run persistence is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	record, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to load run", zap.String("run_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotImplemented, "run persistence is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}
