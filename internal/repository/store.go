package repository

import (
	"context"
	"errors"
	"time"

	"studytime-backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInFlightSession is returned when persisting a session would leave a
	// user with two ACTIVE or PAUSED sessions.
	ErrInFlightSession = errors.New("user already has an in-flight session")
	// ErrOpenBreak is returned when persisting a break would leave a session
	// with two open breaks.
	ErrOpenBreak = errors.New("session already has an open break")
)

type SessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	FindByID(ctx context.Context, id string) (*models.StudySession, error)
	// FindActiveByUserID returns the user's ACTIVE or PAUSED session.
	FindActiveByUserID(ctx context.Context, userID string) (*models.StudySession, error)
	// FindByUserID returns the user's sessions, newest start first.
	FindByUserID(ctx context.Context, userID string) ([]models.StudySession, error)
	FindInFlightStartedBefore(ctx context.Context, cutoff time.Time) ([]models.StudySession, error)
	Update(ctx context.Context, s *models.StudySession) error
	Delete(ctx context.Context, id string) error
}

type BreakStore interface {
	Create(ctx context.Context, b *models.Break) error
	FindByID(ctx context.Context, id string) (*models.Break, error)
	// FindBySessionID returns the session's breaks ordered by start time.
	FindBySessionID(ctx context.Context, sessionID string) ([]models.Break, error)
	Update(ctx context.Context, b *models.Break) error
	Delete(ctx context.Context, id string) error
}

type SubjectStore interface {
	Create(ctx context.Context, s *models.Subject) error
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	// FindByUserID returns the user's subjects ordered by name, including
	// inactive ones.
	FindByUserID(ctx context.Context, userID string) ([]models.Subject, error)
	Update(ctx context.Context, s *models.Subject) error
}

type SemesterStore interface {
	Create(ctx context.Context, s *models.Semester) error
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	// FindByUserID returns the user's semesters, latest start date first.
	FindByUserID(ctx context.Context, userID string) ([]models.Semester, error)
	Update(ctx context.Context, s *models.Semester) error
	// Delete removes the semester and detaches its subjects.
	Delete(ctx context.Context, id string) error
}

// Transactor runs fn against session and break stores that share one
// transaction. Every write made through them commits if fn returns nil and
// none does otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(sessions SessionStore, breaks BreakStore) error) error
}
