package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"placement/internal/logging"
	"placement/internal/model"
	"placement/internal/service"
)

type EvaluationStore interface {
	Evaluate(ctx context.Context, req service.EvaluateRequest) (*model.Evaluation, error)
	Get(ctx context.Context, rollNo int) (*model.Evaluation, error)
	List(ctx context.Context, q service.ListQuery) ([]model.Evaluation, int64, int, error)
	Delete(ctx context.Context, rollNo int) error
}

type EvaluationHandler struct {
	store  EvaluationStore
	logger *zap.Logger
}

func NewEvaluationHandler(store EvaluationStore, logger *zap.Logger) *EvaluationHandler {
	return &EvaluationHandler{store: store, logger: logging.OrNop(logger)}
}

// CreateEvaluation handles POST /evaluations
func (h *EvaluationHandler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req service.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	evaluation, err := h.store.Evaluate(r.Context(), req)
	if errors.Is(err, service.ErrEmptyName) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("Failed to evaluate", zap.Int("roll_no", req.RollNo), zap.Error(err))
		http.Error(w, "Failed to save evaluation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, evaluation, h.logger)
}

// ListEvaluations handles GET /evaluations
func (h *EvaluationHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 {
		limit = 10
	}

	evaluations, totalCount, totalPages, err := h.store.List(r.Context(), service.ListQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
		Name:      query.Get("name"),
		Result:    model.Outcome(strings.ToUpper(query.Get("result"))),
	})
	if errors.Is(err, service.ErrInvalidQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("Failed to list evaluations", zap.Error(err))
		http.Error(w, "Failed to list evaluations", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data":       evaluations,
		"page":       page,
		"limit":      limit,
		"total":      totalCount,
		"totalPages": totalPages,
	}
	writeJSON(w, http.StatusOK, response, h.logger)
}

// GetEvaluation handles GET /evaluations/{rollNo}
func (h *EvaluationHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	rollNo, ok := rollNoParam(w, r)
	if !ok {
		return
	}

	evaluation, err := h.store.Get(r.Context(), rollNo)
	if errors.Is(err, service.ErrEvaluationNotFound) {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to load evaluation", zap.Int("roll_no", rollNo), zap.Error(err))
		http.Error(w, "Failed to load evaluation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, evaluation, h.logger)
}

// DeleteEvaluation handles DELETE /evaluations/{rollNo}
func (h *EvaluationHandler) DeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	rollNo, ok := rollNoParam(w, r)
	if !ok {
		return
	}

	err := h.store.Delete(r.Context(), rollNo)
	if errors.Is(err, service.ErrEvaluationNotFound) {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete evaluation", zap.Int("roll_no", rollNo), zap.Error(err))
		http.Error(w, "Failed to delete evaluation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func rollNoParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	rollNo, err := strconv.Atoi(mux.Vars(r)["rollNo"])
	if err != nil {
		http.Error(w, "rollNo must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return rollNo, true
}

// writeJSON encodes before writing the status so an unencodable value
// becomes a 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *zap.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Error encoding response", zap.Error(err))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Debug("Error writing response", zap.Error(err))
	}
}
