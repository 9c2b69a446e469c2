package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studytime-backend/internal/models"
)

type BreakRepo struct {
	db DBTX
}

var _ BreakStore = (*BreakRepo)(nil)

func NewBreakRepo(db DBTX) *BreakRepo {
	return &BreakRepo{db: db}
}

func (r *BreakRepo) Create(ctx context.Context, b *models.Break) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO breaks (id, session_id, start_time, end_time, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.SessionID, b.StartTime, b.EndTime, b.Duration, b.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == openBreakIndex {
		return ErrOpenBreak
	}
	return err
}

func (r *BreakRepo) FindByID(ctx context.Context, id string) (*models.Break, error) {
	b := &models.Break{}
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, start_time, end_time, duration, created_at
		FROM breaks WHERE id = $1`, id).Scan(
		&b.ID, &b.SessionID, &b.StartTime, &b.EndTime, &b.Duration, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BreakRepo) FindBySessionID(ctx context.Context, sessionID string) ([]models.Break, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, start_time, end_time, duration, created_at
		FROM breaks WHERE session_id = $1
		ORDER BY start_time ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaks []models.Break
	for rows.Next() {
		var b models.Break
		if err := rows.Scan(&b.ID, &b.SessionID, &b.StartTime, &b.EndTime, &b.Duration, &b.CreatedAt); err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

// Update persists the end of a break. Breaks are never otherwise mutated.
func (r *BreakRepo) Update(ctx context.Context, b *models.Break) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE breaks SET end_time = $2, duration = $3
		WHERE id = $1`, b.ID, b.EndTime, b.Duration)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BreakRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM breaks WHERE id = $1", id)
	return err
}
