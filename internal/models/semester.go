package models

import "time"

// Semester groups a user's subjects over a date range. A semester is current
// when it is active and the date falls inside its range.
type Semester struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether t falls within the semester, bounds included.
func (s Semester) Contains(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}

type CreateSemesterRequest struct {
	Name      string    `json:"name" validate:"required,max=100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

type UpdateSemesterRequest struct {
	Name      *string    `json:"name" validate:"omitempty,min=1,max=100"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsActive  *bool      `json:"is_active"`
}
