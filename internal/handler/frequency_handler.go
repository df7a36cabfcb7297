package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"placement/internal/logging"
	"placement/internal/textstat"
)

type FrequencyHandler struct {
	logger *zap.Logger
}

func NewFrequencyHandler(logger *zap.Logger) *FrequencyHandler {
	return &FrequencyHandler{logger: logging.OrNop(logger)}
}

type frequencyRequest struct {
	Text string `json:"text"`
}

type charCount struct {
	Char  string `json:"char"`
	Count int    `json:"count"`
}

type frequencyResponse struct {
	Text        string      `json:"text"`
	Frequencies []charCount `json:"frequencies"`
	Display     string      `json:"display"`
}

// CountFrequencies handles POST /frequencies
func (h *FrequencyHandler) CountFrequencies(w http.ResponseWriter, r *http.Request) {
	var req frequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	freq := textstat.CountCharFrequencies(req.Text)
	counts := make([]charCount, 0, freq.Len())
	for _, c := range freq.Counts() {
		counts = append(counts, charCount{Char: string(c.Char), Count: c.Count})
	}

	writeJSON(w, http.StatusOK, frequencyResponse{
		Text:        req.Text,
		Frequencies: counts,
		Display:     freq.String(),
	}, h.logger)
}
