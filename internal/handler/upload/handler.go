// Package upload serves the document upload and health endpoints.
package upload

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/service/library"
	"github.com/zhouzirui/cubechat/pkg/utils"
)

// Handler accepts PDF uploads into the library.
type Handler struct {
	library  *library.Library
	maxBytes int64
	logger   *zap.Logger
}

// New creates the upload handler. Request bodies above maxBytes are rejected.
func New(lib *library.Library, maxBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		library:  lib,
		maxBytes: maxBytes,
		logger:   logger.Named("upload"),
	}
}

// RegisterRoutes mounts the upload and ping routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload_pdf", h.handleUpload)
	r.Get("/ping", h.handlePing)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	tooLargeMsg := fmt.Sprintf("File exceeds %d bytes", h.maxBytes)
	if r.ContentLength > h.maxBytes {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !library.IsPDF(header.Filename) {
		utils.RespondError(w, http.StatusBadRequest, "File doesn't have .pdf extension")
		return
	}

	doc, err := h.library.Add(header.Filename, file)
	switch {
	case errors.Is(err, library.ErrNotPDF):
		utils.RespondError(w, http.StatusBadRequest, "File doesn't have .pdf extension")
		return
	case errors.Is(err, library.ErrEmptyFile):
		utils.RespondError(w, http.StatusBadRequest, "File is empty")
		return
	case err != nil:
		h.logger.Error("indexing failed", zap.String("file", header.Filename), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Error updating index: %v", err))
		return
	}

	utils.RespondMessage(w, http.StatusOK, fmt.Sprintf("%s uploaded and index updated.", doc.Name))
}

func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	utils.RespondMessage(w, http.StatusOK, "UP AND RUNNING.")
}
