package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

type ExportHandler struct {
	exports *services.ExportService
}

func NewExportHandler(exports *services.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid result ID", r))
		return
	}

	format, err := services.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	file, err := h.exports.Export(r.Context(), middleware.GetUserID(r.Context()), id, format)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("X-Tokens-Charged", strconv.Itoa(file.TokensCharged))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Body)
}
