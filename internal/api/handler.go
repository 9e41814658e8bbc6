package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/rules"
	"github.com/kestrelhq/kestrel/internal/scorer"
	"github.com/kestrelhq/kestrel/internal/stats"
	"github.com/kestrelhq/kestrel/internal/trainer"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	pipeline   *pipeline.Pipeline
	scorer     *scorer.Scorer
	trainer    *trainer.Trainer
	aggregator *stats.Aggregator
	engine     *rules.Engine
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, pipe *pipeline.Pipeline, sc *scorer.Scorer, tr *trainer.Trainer, agg *stats.Aggregator, engine *rules.Engine, version string) *Handler {
	return &Handler{
		repo:       repo,
		pipeline:   pipe,
		scorer:     sc,
		trainer:    tr,
		aggregator: agg,
		engine:     engine,
		version:    version,
	}
}

const dateLayout = "2006-01-02"

// SubmitTransaction handles POST /transactions.
// The transaction is saved and scored synchronously; a scoring failure
// still returns 201 with the transaction in its unscored state.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	tx, err := h.pipeline.Submit(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("transaction submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to process transaction",
		})
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// GetTransaction retrieves a transaction by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "id")
	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	tx, err := h.repo.GetTransaction(r.Context(), txID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "transaction not found",
			})
			return
		}
		slog.Error("failed to get transaction", "id", txID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get transaction",
		})
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ListTransactions handles GET /transactions with optional filters:
// status, sender_id, min_amount, max_amount.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter domain.TransactionFilter

	if status := q.Get("status"); status != "" {
		if !domain.ValidStatus(domain.Status(status)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid status filter: " + status,
			})
			return
		}
		filter.Status = domain.Status(status)
	}
	filter.SenderID = q.Get("sender_id")

	if raw := q.Get("min_amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "min_amount must be a number",
			})
			return
		}
		filter.MinAmount = &v
	}
	if raw := q.Get("max_amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "max_amount must be a number",
			})
			return
		}
		filter.MaxAmount = &v
	}

	txs, err := h.repo.ListTransactions(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list transactions",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// StatusUpdateRequest is the request body for POST /transactions/{id}/status.
type StatusUpdateRequest struct {
	Status domain.Status `json:"status"`
}

// UpdateTransactionStatus handles administrative status corrections.
// The fraud score is never modified; daily stats are adjusted to match.
func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "id")
	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	tx, err := h.pipeline.UpdateStatus(r.Context(), txID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "transaction not found",
			})
		default:
			slog.Error("failed to update status", "id", txID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to update status",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// Score handles POST /score: stand-alone scoring with no persistence
// side effects.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req domain.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	pred, err := h.scorer.Predict(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("scoring failed", "transaction_id", req.TransactionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

// Stats handles GET /stats?start=YYYY-MM-DD&end=YYYY-MM-DD.
// Defaults to the last 30 days when the range is omitted.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	end := stats.Day(time.Now().UTC())
	start := end.AddDate(0, 0, -29)

	if raw := q.Get("start"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "start must be YYYY-MM-DD",
			})
			return
		}
		start = parsed
	}
	if raw := q.Get("end"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "end must be YYYY-MM-DD",
			})
			return
		}
		end = parsed
	}

	if end.Before(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "end must not be before start",
		})
		return
	}

	period, err := h.aggregator.PeriodStats(r.Context(), start, end)
	if err != nil {
		slog.Error("failed to compute stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, period)
}

// StatsSummary handles GET /stats/summary?period=today|last_week|last_month.
func (h *Handler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "today"
	}

	end := stats.Day(time.Now().UTC())
	start := end

	switch period {
	case "today":
	case "last_week":
		start = end.AddDate(0, 0, -6)
	case "last_month":
		start = end.AddDate(0, 0, -29)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "period must be today, last_week, or last_month",
		})
		return
	}

	summary, err := h.aggregator.PeriodStats(r.Context(), start, end)
	if err != nil {
		slog.Error("failed to compute stats summary", "period", period, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period": period,
		"stats":  summary,
	})
}

// TrainModel handles POST /models/train: runs a full training cycle and
// activates the resulting model.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	result, err := h.trainer.Train(r.Context())
	if err != nil {
		if errors.Is(err, trainer.ErrBadDataset) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("training failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "training failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListModels returns all stored model versions.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.repo.ListModels(r.Context())
	if err != nil {
		slog.Error("failed to list models", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list models",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

// GetActiveModel returns the currently active model, if any.
func (h *Handler) GetActiveModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.repo.GetActiveModel(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoModel) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no active model",
			})
			return
		}
		slog.Error("failed to get active model", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get active model",
		})
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// ListRules returns all risk rules loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.LoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// CreateRule validates and loads a new risk rule into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.RiskRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if rule.ID == "" || rule.Name == "" || rule.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	if err := h.engine.LoadRule(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	slog.Info("risk rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, &rule)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready":         "true",
		"model_version": h.scorer.ActiveVersion(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
