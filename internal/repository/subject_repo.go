package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"studytime-backend/internal/models"
)

type SubjectRepo struct {
	db DBTX
}

var _ SubjectStore = (*SubjectRepo)(nil)

func NewSubjectRepo(db DBTX) *SubjectRepo {
	return &SubjectRepo{db: db}
}

func (r *SubjectRepo) Create(ctx context.Context, s *models.Subject) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subjects (id, user_id, semester_id, name, color, icon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.SemesterID, s.Name, s.Color, s.Icon, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	s := &models.Subject{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, semester_id, name, color, icon, is_active, created_at, updated_at
		FROM subjects WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.SemesterID, &s.Name, &s.Color, &s.Icon, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *SubjectRepo) FindByUserID(ctx context.Context, userID string) ([]models.Subject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, semester_id, name, color, icon, is_active, created_at, updated_at
		FROM subjects WHERE user_id = $1
		ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.UserID, &s.SemesterID, &s.Name, &s.Color, &s.Icon, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepo) Update(ctx context.Context, s *models.Subject) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE subjects
		SET name = $2, color = $3, icon = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, s.Name, s.Color, s.Icon, s.IsActive, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
