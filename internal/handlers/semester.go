package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"studytime-backend/internal/middleware"
	"studytime-backend/internal/models"
)

type semesterService interface {
	Create(ctx context.Context, userID string, req models.CreateSemesterRequest) (*models.Semester, error)
	List(ctx context.Context, userID string) ([]models.Semester, error)
	GetActive(ctx context.Context, userID string) (*models.Semester, error)
	Update(ctx context.Context, userID, semesterID string, req models.UpdateSemesterRequest) (*models.Semester, error)
	Delete(ctx context.Context, userID, semesterID string) error
}

type SemesterHandler struct {
	service semesterService
	logger  *zap.Logger
}

func NewSemesterHandler(service semesterService, logger *zap.Logger) *SemesterHandler {
	return &SemesterHandler{service: service, logger: logger}
}

func (h *SemesterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSemesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	semester, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"semester": semester})
}

func (h *SemesterHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	semesters, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"semesters": semesters})
}

// Active responds with {"semester": null} when no semester is current.
func (h *SemesterHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	semester, err := h.service.GetActive(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"semester": semester})
}

func (h *SemesterHandler) Update(w http.ResponseWriter, r *http.Request) {
	semesterID, ok := idParam(w, r, "semester")
	if !ok {
		return
	}

	var req models.UpdateSemesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	semester, err := h.service.Update(r.Context(), userID, semesterID, req)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"semester": semester})
}

func (h *SemesterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	semesterID, ok := idParam(w, r, "semester")
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, semesterID); err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Semester deleted"})
}
