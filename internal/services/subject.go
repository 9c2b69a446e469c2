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

type SubjectService struct {
	subjects  repository.SubjectStore
	semesters repository.SemesterStore
	logger    *zap.Logger
	clock     Clock
	newID     IDGenerator
}

func NewSubjectService(subjects repository.SubjectStore, semesters repository.SemesterStore, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		subjects:  subjects,
		semesters: semesters,
		logger:    logger,
		clock:     SystemClock,
		newID:     NewUUID,
	}
}

func (s *SubjectService) Create(ctx context.Context, userID string, req models.CreateSubjectRequest) (*models.Subject, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := Validate(req); err != nil {
		return nil, err
	}
	if req.SemesterID != nil {
		if _, err := loadOwnedSemester(ctx, s.semesters, userID, *req.SemesterID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	subject := &models.Subject{
		ID:         s.newID(),
		UserID:     userID,
		SemesterID: req.SemesterID,
		Name:       req.Name,
		Color:      req.Color,
		Icon:       req.Icon,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}

	s.logger.Info("subject created", zap.String("subject_id", subject.ID), zap.String("user_id", userID))
	return subject, nil
}

// List returns the user's subjects that have not been deleted.
func (s *SubjectService) List(ctx context.Context, userID string) ([]models.Subject, error) {
	subjects, err := s.subjects.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	active := make([]models.Subject, 0, len(subjects))
	for _, subj := range subjects {
		if subj.IsActive {
			active = append(active, subj)
		}
	}
	return active, nil
}

// Update changes the fields set in req.
func (s *SubjectService) Update(ctx context.Context, userID, subjectID string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	subject, err := s.loadOwned(ctx, userID, subjectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		subject.Name = *req.Name
	}
	if req.Color != nil {
		subject.Color = *req.Color
	}
	if req.Icon != nil {
		subject.Icon = req.Icon
	}
	subject.UpdatedAt = s.clock.Now()

	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, fmt.Errorf("failed to update subject: %w", err)
	}
	return subject, nil
}

// Delete deactivates the subject. Its sessions are kept.
func (s *SubjectService) Delete(ctx context.Context, userID, subjectID string) error {
	subject, err := s.loadOwned(ctx, userID, subjectID)
	if err != nil {
		return err
	}

	subject.IsActive = false
	subject.UpdatedAt = s.clock.Now()
	if err := s.subjects.Update(ctx, subject); err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}

	s.logger.Info("subject deleted", zap.String("subject_id", subject.ID), zap.String("user_id", userID))
	return nil
}

func (s *SubjectService) loadOwned(ctx context.Context, userID, subjectID string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Subject not found"}
		}
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}
	if subject.UserID != userID {
		return nil, &ForbiddenError{Message: "Subject does not belong to you"}
	}
	if !subject.IsActive {
		return nil, &NotFoundError{Message: "Subject not found"}
	}
	return subject, nil
}
