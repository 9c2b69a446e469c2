package models

import "time"

type SessionStatus string

const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusPaused    SessionStatus = "PAUSED"
	StatusCompleted SessionStatus = "COMPLETED"
)

// StudySession is one timed study record for a user and subject. Durations
// are whole seconds. TotalDuration and EffectiveStudyTime stay nil until the
// session is COMPLETED.
type StudySession struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	SubjectID            string        `json:"subject_id"`
	StartTime            time.Time     `json:"start_time"`
	EndTime              *time.Time    `json:"end_time"`
	PausedAt             *time.Time    `json:"paused_at"`
	Status               SessionStatus `json:"status"`
	TotalDuration        *int          `json:"total_duration"`
	EffectiveStudyTime   *int          `json:"effective_study_time"`
	BreakCount           int           `json:"break_count"`
	AccumulatedPauseTime int           `json:"accumulated_pause_time"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// SessionView is a session enriched with figures computed at request time.
// AccumulatedPauseTime on the embedded session may carry a live value that
// was never persisted.
type SessionView struct {
	StudySession
	AccumulatedBreakTime int  `json:"accumulated_break_time"`
	HasActiveBreak       bool `json:"has_active_break"`
}

type StartSessionRequest struct {
	SubjectID string `json:"subject_id" validate:"required,uuid"`
}

type PauseSessionRequest struct {
	// IsBreak defaults to true when omitted.
	IsBreak *bool `json:"is_break"`
}
