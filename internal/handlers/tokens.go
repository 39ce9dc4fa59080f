package handlers

import (
	"net/http"

	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

type TokenHandler struct {
	workflow *services.ProcessingWorkflow
}

func NewTokenHandler(workflow *services.ProcessingWorkflow) *TokenHandler {
	return &TokenHandler{workflow: workflow}
}

func (h *TokenHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.workflow.GetTokenInfo(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *TokenHandler) ExportCheck(w http.ResponseWriter, r *http.Request) {
	check, err := h.workflow.CanExport(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
