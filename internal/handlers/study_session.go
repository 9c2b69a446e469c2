package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"studytime-backend/internal/middleware"
	"studytime-backend/internal/models"
	"studytime-backend/internal/services"
)

type studySessionService interface {
	Start(ctx context.Context, userID, subjectID string) (*models.SessionView, error)
	Pause(ctx context.Context, userID, sessionID string, isBreak bool) (*models.SessionView, error)
	Resume(ctx context.Context, userID, sessionID string) (*models.SessionView, error)
	Stop(ctx context.Context, userID, sessionID string) (*models.StudySession, error)
	GetActive(ctx context.Context, userID string) (*models.SessionView, error)
	List(ctx context.Context, userID string) ([]models.StudySession, error)
	Delete(ctx context.Context, userID, sessionID string) error
}

type StudySessionHandler struct {
	service studySessionService
	logger  *zap.Logger
}

func NewStudySessionHandler(service studySessionService, logger *zap.Logger) *StudySessionHandler {
	return &StudySessionHandler{service: service, logger: logger}
}

func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if err := services.Validate(req); err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.service.Start(r.Context(), userID, req.SubjectID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

// Pause accepts an optional {"is_break": bool} body. A missing body or
// field means a break.
func (h *StudySessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req models.PauseSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	isBreak := true
	if req.IsBreak != nil {
		isBreak = *req.IsBreak
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.service.Pause(r.Context(), userID, sessionID, isBreak)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.service.Resume(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.service.Stop(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Active returns {"session": null} when the user has nothing in flight.
func (h *StudySessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	session, err := h.service.GetActive(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessions, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *StudySessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, sessionID); err != nil {
		handleServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	return idParam(w, r, "session")
}
