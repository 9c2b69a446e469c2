package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"studytime-backend/internal/middleware"
	"studytime-backend/internal/models"
)

type subjectService interface {
	Create(ctx context.Context, userID string, req models.CreateSubjectRequest) (*models.Subject, error)
	List(ctx context.Context, userID string) ([]models.Subject, error)
	Update(ctx context.Context, userID, subjectID string, req models.UpdateSubjectRequest) (*models.Subject, error)
	Delete(ctx context.Context, userID, subjectID string) error
}

type SubjectHandler struct {
	service subjectService
	logger  *zap.Logger
}

func NewSubjectHandler(service subjectService, logger *zap.Logger) *SubjectHandler {
	return &SubjectHandler{service: service, logger: logger}
}

func (h *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	subject, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"subject": subject})
}

func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subjects, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

func (h *SubjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subject")
	if !ok {
		return
	}

	var req models.UpdateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	subject, err := h.service.Update(r.Context(), userID, subjectID, req)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subject": subject})
}

func (h *SubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subject")
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, subjectID); err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Subject deleted"})
}
