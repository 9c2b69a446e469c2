package models

import "time"

type Subject struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SemesterID *string   `json:"semester_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Icon       *string   `json:"icon"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateSubjectRequest struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Color      string  `json:"color" validate:"required,hexcolor"`
	Icon       *string `json:"icon" validate:"omitempty,max=50"`
	SemesterID *string `json:"semester_id" validate:"omitempty,uuid"`
}

type UpdateSubjectRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
	Icon  *string `json:"icon" validate:"omitempty,max=50"`
}
