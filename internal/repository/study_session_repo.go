package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studytime-backend/internal/models"
)

const (
	uniqueViolation = "23505"

	inFlightSessionIndex = "uniq_study_sessions_in_flight"
	openBreakIndex       = "uniq_breaks_open"
)

type StudySessionRepo struct {
	db DBTX
}

var _ SessionStore = (*StudySessionRepo)(nil)

func NewStudySessionRepo(db DBTX) *StudySessionRepo {
	return &StudySessionRepo{db: db}
}

const sessionColumns = `id, user_id, subject_id, start_time, end_time, paused_at, status,
	total_duration, effective_study_time, break_count, accumulated_pause_time, created_at, updated_at`

func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	query := `
		INSERT INTO study_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.SubjectID, s.StartTime, s.EndTime, s.PausedAt, string(s.Status),
		s.TotalDuration, s.EffectiveStudyTime, s.BreakCount, s.AccumulatedPauseTime, s.CreatedAt, s.UpdatedAt,
	)
	return translateSessionErr(err)
}

func (r *StudySessionRepo) FindByID(ctx context.Context, id string) (*models.StudySession, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *StudySessionRepo) FindActiveByUserID(ctx context.Context, userID string) (*models.StudySession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE user_id = $1 AND status IN ('ACTIVE', 'PAUSED')
		ORDER BY start_time DESC
		LIMIT 1`, userID)
	return scanSession(row)
}

func (r *StudySessionRepo) FindByUserID(ctx context.Context, userID string) ([]models.StudySession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *StudySessionRepo) FindInFlightStartedBefore(ctx context.Context, cutoff time.Time) ([]models.StudySession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE status IN ('ACTIVE', 'PAUSED') AND start_time < $1
		ORDER BY start_time ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *StudySessionRepo) Update(ctx context.Context, s *models.StudySession) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE study_sessions
		SET end_time = $2,
			paused_at = $3,
			status = $4,
			total_duration = $5,
			effective_study_time = $6,
			break_count = $7,
			accumulated_pause_time = $8,
			updated_at = $9
		WHERE id = $1`,
		s.ID, s.EndTime, s.PausedAt, string(s.Status), s.TotalDuration, s.EffectiveStudyTime,
		s.BreakCount, s.AccumulatedPauseTime, s.UpdatedAt,
	)
	if err != nil {
		return translateSessionErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudySessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM study_sessions WHERE id = $1", id)
	return err
}

func scanSession(row pgx.Row) (*models.StudySession, error) {
	s := &models.StudySession{}
	var status string
	err := row.Scan(
		&s.ID, &s.UserID, &s.SubjectID, &s.StartTime, &s.EndTime, &s.PausedAt, &status,
		&s.TotalDuration, &s.EffectiveStudyTime, &s.BreakCount, &s.AccumulatedPauseTime, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	return s, nil
}

func collectSessions(rows pgx.Rows) ([]models.StudySession, error) {
	defer rows.Close()

	var sessions []models.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func translateSessionErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == inFlightSessionIndex {
		return ErrInFlightSession
	}
	return err
}
