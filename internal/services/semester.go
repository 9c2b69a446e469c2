package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"studytime-backend/internal/models"
	"studytime-backend/internal/repository"
)

type SemesterService struct {
	semesters repository.SemesterStore
	logger    *zap.Logger
	clock     Clock
	newID     IDGenerator
}

func NewSemesterService(semesters repository.SemesterStore, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{
		semesters: semesters,
		logger:    logger,
		clock:     SystemClock,
		newID:     NewUUID,
	}
}

// Create stores a new, inactive semester.
func (s *SemesterService) Create(ctx context.Context, userID string, req models.CreateSemesterRequest) (*models.Semester, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := Validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	semester := &models.Semester{
		ID:        s.newID(),
		UserID:    userID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.semesters.Create(ctx, semester); err != nil {
		return nil, fmt.Errorf("failed to create semester: %w", err)
	}

	s.logger.Info("semester created", zap.String("semester_id", semester.ID), zap.String("user_id", userID))
	return semester, nil
}

// List returns the user's semesters, latest start first.
func (s *SemesterService) List(ctx context.Context, userID string) ([]models.Semester, error) {
	semesters, err := s.semesters.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list semesters: %w", err)
	}
	if semesters == nil {
		semesters = []models.Semester{}
	}
	return semesters, nil
}

// GetActive returns the most recently started semester that is active and
// contains the current time, or nil.
func (s *SemesterService) GetActive(ctx context.Context, userID string) (*models.Semester, error) {
	semesters, err := s.semesters.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list semesters: %w", err)
	}

	now := s.clock.Now()
	for i := range semesters {
		if semesters[i].IsActive && semesters[i].Contains(now) {
			return &semesters[i], nil
		}
	}
	return nil, nil
}

// Update changes the fields set in req. The resulting range must still end
// after it starts.
func (s *SemesterService) Update(ctx context.Context, userID, semesterID string, req models.UpdateSemesterRequest) (*models.Semester, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	semester, err := loadOwnedSemester(ctx, s.semesters, userID, semesterID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		semester.Name = *req.Name
	}
	if req.StartDate != nil {
		semester.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		semester.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		semester.IsActive = *req.IsActive
	}
	if !semester.StartDate.Before(semester.EndDate) {
		return nil, &ValidationError{Fields: map[string]string{
			"end_date": "End date must be after start date",
		}}
	}
	semester.UpdatedAt = s.clock.Now()

	if err := s.semesters.Update(ctx, semester); err != nil {
		return nil, fmt.Errorf("failed to update semester: %w", err)
	}
	return semester, nil
}

// Delete removes the semester. Its subjects remain, detached.
func (s *SemesterService) Delete(ctx context.Context, userID, semesterID string) error {
	semester, err := loadOwnedSemester(ctx, s.semesters, userID, semesterID)
	if err != nil {
		return err
	}
	if err := s.semesters.Delete(ctx, semester.ID); err != nil {
		return fmt.Errorf("failed to delete semester: %w", err)
	}

	s.logger.Info("semester deleted", zap.String("semester_id", semester.ID), zap.String("user_id", userID))
	return nil
}

func loadOwnedSemester(ctx context.Context, semesters repository.SemesterStore, userID, semesterID string) (*models.Semester, error) {
	semester, err := semesters.FindByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Semester not found"}
		}
		return nil, fmt.Errorf("failed to load semester: %w", err)
	}
	if semester.UserID != userID {
		return nil, &ForbiddenError{Message: "Semester does not belong to you"}
	}
	return semester, nil
}
