package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
	"github.com/tigerfox1974/StudyBuddy/internal/worker"
)

const (
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
	maxHistoryLimit   = 100
)

type DocumentHandler struct {
	workflow       *services.ProcessingWorkflow
	pool           *worker.Pool
	maxUploadBytes int64
}

// NewDocumentHandler serves uploads through pool when it is non-nil.
func NewDocumentHandler(workflow *services.ProcessingWorkflow, pool *worker.Pool, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{workflow: workflow, pool: pool, maxUploadBytes: maxUploadBytes}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds the upload limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read uploaded file", r))
		return
	}

	req := services.UploadRequest{
		UserID:   middleware.GetUserID(r.Context()),
		Filename: header.Filename,
		Data:     data,
		Level:    models.Level(r.FormValue("level")),
		Role:     models.Role(r.FormValue("role")),
		Language: r.FormValue("language"),
	}

	var result *services.UploadResult
	process := func(ctx context.Context) error {
		var err error
		result, err = h.workflow.ProcessUpload(ctx, req)
		return err
	}
	if h.pool != nil {
		err = h.pool.Do(r.Context(), process)
	} else {
		err = process(r.Context())
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"limit": "must be between 1 and 100"}, r))
			return
		}
		limit = n
	}

	docs, err := h.workflow.History(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}
