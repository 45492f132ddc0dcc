package analysis

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/carelens-ai/analytics/pkg/common/logger"
	"github.com/carelens-ai/analytics/pkg/report"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler exposes completed runs read-only: run records from the repository,
// summaries and tables from the warehouse with a cache fast path.
type Handler struct {
	repo      *Repository
	warehouse *report.WarehouseSink
	cache     *report.Cache
}

func NewHandler(repo *Repository, warehouse *report.WarehouseSink, cache *report.Cache) *Handler {
	return &Handler{repo: repo, warehouse: warehouse, cache: cache}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/runs", h.handleListRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}", h.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/summary", h.handleGetSummary).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/tables/{name}", h.handleGetTable).Methods(http.MethodGet)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	runs, err := h.repo.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list analysis runs")
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": runs})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveRunID(w, r)
	if !ok {
		return
	}
	run, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"run": run})
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveRunID(w, r)
	if !ok {
		return
	}
	if h.cache != nil {
		if data, hit, err := h.cache.GetSummary(r.Context(), id.String()); err == nil && hit {
			writeRawJSON(w, data)
			return
		}
	}
	stats, err := h.warehouse.GetSummary(r.Context(), id.String())
	if err != nil {
		http.Error(w, "summary not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveRunID(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	if h.cache != nil {
		if data, hit, err := h.cache.GetTable(r.Context(), id.String(), name); err == nil && hit {
			writeRawJSON(w, data)
			return
		}
	}
	table, err := h.warehouse.GetTable(r.Context(), id.String(), name)
	if err != nil {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// resolveRunID accepts either a run uuid or the literal "latest".
func (h *Handler) resolveRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	if raw == "latest" {
		if h.cache != nil {
			if cached, hit, err := h.cache.LatestRunID(r.Context()); err == nil && hit {
				if id, err := uuid.Parse(cached); err == nil {
					return id, true
				}
			}
		}
		run, err := h.repo.Latest(r.Context())
		if err != nil {
			http.Error(w, "no completed runs", http.StatusNotFound)
			return uuid.Nil, false
		}
		return run.ID, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func writeRawJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
