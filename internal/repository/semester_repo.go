package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"studytime-backend/internal/models"
)

type SemesterRepo struct {
	db DBTX
}

var _ SemesterStore = (*SemesterRepo)(nil)

func NewSemesterRepo(db DBTX) *SemesterRepo {
	return &SemesterRepo{db: db}
}

const semesterColumns = `id, user_id, name, start_date, end_date, is_active, created_at, updated_at`

func (r *SemesterRepo) Create(ctx context.Context, s *models.Semester) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO semesters (`+semesterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.Name, s.StartDate, s.EndDate, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	s := &models.Semester{}
	err := r.db.QueryRow(ctx, `SELECT `+semesterColumns+` FROM semesters WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.Name, &s.StartDate, &s.EndDate, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *SemesterRepo) FindByUserID(ctx context.Context, userID string) ([]models.Semester, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+semesterColumns+` FROM semesters
		WHERE user_id = $1
		ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var semesters []models.Semester
	for rows.Next() {
		var s models.Semester
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.StartDate, &s.EndDate, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		semesters = append(semesters, s)
	}
	return semesters, rows.Err()
}

func (r *SemesterRepo) Update(ctx context.Context, s *models.Semester) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE semesters
		SET name = $2, start_date = $3, end_date = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, s.Name, s.StartDate, s.EndDate, s.IsActive, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete relies on the subjects.semester_id foreign key (ON DELETE SET NULL)
// to detach subjects.
func (r *SemesterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM semesters WHERE id = $1", id)
	return err
}
