package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: chimw.GetReqID(r.Context()),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejected     *services.RejectedInputError
		validation   *services.ValidationError
		quota        *services.QuotaExceededError
		notFound     *services.NotFoundError
		conflict     *services.ConflictError
		unauthorized *services.UnauthorizedError
		rateLimited  *services.RateLimitError
		generation   *services.GenerationError
		commit       *services.CommitError
	)

	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadRequest, errorResp("REJECTED_INPUT", rejected.Message, r))
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &quota):
		writeJSON(w, http.StatusPaymentRequired, errorRespWithFields("QUOTA_EXCEEDED", quota.Message,
			map[string]string{"reason": string(quota.Reason)}, r))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflict.Message, r))
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r))
	case errors.As(err, &rateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateLimited.Message, r))
	case errors.As(err, &generation):
		slog.Error("generation failed", "artifact", generation.Artifact, "error", generation.Err, "request_id", chimw.GetReqID(r.Context()))
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", "Content generation failed. No tokens were charged, please try again.", r))
	case errors.As(err, &commit):
		slog.Error("commit failed", "error", commit.Err, "request_id", chimw.GetReqID(r.Context()))
		writeJSON(w, http.StatusServiceUnavailable, errorResp("COMMIT_FAILED", "Results could not be saved. No tokens were charged, please try again.", r))
	default:
		slog.Error("unhandled service error", "error", err, "request_id", chimw.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
