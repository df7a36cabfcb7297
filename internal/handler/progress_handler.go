package handler

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"placement/internal/logging"
	"placement/internal/service"
)

type ProgressSource interface {
	GetFileProgress(fileName string) *service.ProgressInfo
	GetAllFileProgress() []*service.ProgressInfo
	RegisterProgressListener(ch chan *service.ProgressInfo)
	UnregisterProgressListener(ch chan *service.ProgressInfo)
}

type ProgressHandler struct {
	progress ProgressSource
	logger   *zap.Logger
}

func NewProgressHandler(progress ProgressSource, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, logger: logging.OrNop(logger)}
}

// GetFileProgress handles GET /progress/file?fileName=
func (h *ProgressHandler) GetFileProgress(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		http.Error(w, "fileName parameter is required", http.StatusBadRequest)
		return
	}

	progress := h.progress.GetFileProgress(filepath.Base(fileName))
	if progress == nil {
		http.Error(w, "File not found or not being processed", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, progress, h.logger)
}

// GetAllProgress handles GET /progress
func (h *ProgressHandler) GetAllProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.progress.GetAllFileProgress(), h.logger)
}

// StreamProgress handles GET /progress/stream, sending each progress update
// as a Server-Sent Event until the client disconnects.
func (h *ProgressHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	progressChan := make(chan *service.ProgressInfo, 16)
	h.progress.RegisterProgressListener(progressChan)
	defer h.progress.UnregisterProgressListener(progressChan)

	for {
		select {
		case progress := <-progressChan:
			data, err := json.Marshal(progress)
			if err != nil {
				h.logger.Warn("Error marshaling progress", zap.Error(err))
				continue
			}
			if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				h.logger.Debug("Error writing SSE data", zap.Error(err))
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			h.logger.Debug("Progress client disconnected")
			return
		}
	}
}
