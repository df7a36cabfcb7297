package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"placement/internal/logging"
)

const maxUploadSize = 100 << 20 // 100MB

type Importer interface {
	ProcessFile(ctx context.Context, filePath string) error
}

type UploadHandler struct {
	importer  Importer
	uploadDir string
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewUploadHandler(importer Importer, uploadDir string, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{importer: importer, uploadDir: uploadDir, logger: logging.OrNop(logger)}
}

// UploadMarks handles POST /upload. Each file in the "files" form field is
// saved and imported in the background; the response lists the accepted files.
func (h *UploadHandler) UploadMarks(w http.ResponseWriter, r *http.Request) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		h.logger.Error("Failed to create uploads directory", zap.String("dir", h.uploadDir), zap.Error(err))
		http.Error(w, "Failed to create uploads directory", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "File too large or bad request", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	fileNames := make([]string, 0, len(files))
	for _, header := range files {
		name := filepath.Base(header.Filename)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".xlsx", ".xlsm":
		default:
			h.logger.Warn("Ignoring unsupported upload", zap.String("file", name))
			continue
		}

		savePath := filepath.Join(h.uploadDir, name)
		if err := saveUpload(header, savePath); err != nil {
			h.logger.Error("Error saving the file", zap.String("file", name), zap.Error(err))
			continue
		}
		fileNames = append(fileNames, name)

		h.wg.Add(1)
		go func(filePath string) {
			defer h.wg.Done()
			if err := h.importer.ProcessFile(context.Background(), filePath); err != nil {
				h.logger.Error("Error processing file", zap.String("file", filePath), zap.Error(err))
			}
		}(savePath)
	}

	if len(fileNames) == 0 {
		http.Error(w, "No supported files uploaded (.csv, .xlsx)", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Files uploaded successfully and processing started",
		"files":   fileNames,
	}, h.logger)
}

// Wait blocks until every background import started by this handler returns.
func (h *UploadHandler) Wait() {
	h.wg.Wait()
}

func saveUpload(header *multipart.FileHeader, savePath string) error {
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	outFile, err := os.Create(savePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, file); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
