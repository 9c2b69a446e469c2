// Package tracking implements the study session state machine and its time
// accounting. Every function is pure: it takes a record and the current
// time and returns a new record, leaving the input untouched.
package tracking

import (
	"errors"
	"fmt"
	"time"

	"studytime-backend/internal/models"
)

// ErrInvalidState is returned when a transition is attempted from a state
// that does not allow it.
var ErrInvalidState = errors.New("invalid session state")

// StopOptions controls how a session is finalized.
type StopOptions struct {
	// ClampEffective floors EffectiveStudyTime at zero when break and pause
	// time exceed the wall-clock span.
	ClampEffective bool
}

// NewSession returns an ACTIVE session started at now.
func NewSession(id, userID, subjectID string, now time.Time) models.StudySession {
	return models.StudySession{
		ID:        id,
		UserID:    userID,
		SubjectID: subjectID,
		StartTime: now,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Pause moves an ACTIVE session to PAUSED and records when the pause began.
func Pause(s models.StudySession, now time.Time) (models.StudySession, error) {
	if s.Status != models.StatusActive {
		return s, fmt.Errorf("%w: can only pause an active session (status %s)", ErrInvalidState, s.Status)
	}

	s.Status = models.StatusPaused
	s.PausedAt = timePtr(now)
	s.UpdatedAt = now
	return s, nil
}

// Resume moves a PAUSED session back to ACTIVE. Pause time accounting is
// the caller's job since it depends on whether a break was open.
func Resume(s models.StudySession, now time.Time) (models.StudySession, error) {
	if s.Status != models.StatusPaused {
		return s, fmt.Errorf("%w: can only resume a paused session (status %s)", ErrInvalidState, s.Status)
	}

	s.Status = models.StatusActive
	s.PausedAt = nil
	s.UpdatedAt = now
	return s, nil
}

// Stop finalizes a session. breakSeconds and pauseSeconds are the totals
// already spent in breaks and silent pauses.
func Stop(s models.StudySession, now time.Time, breakSeconds, pauseSeconds int, opts StopOptions) (models.StudySession, error) {
	if s.Status == models.StatusCompleted {
		return s, fmt.Errorf("%w: session already completed", ErrInvalidState)
	}

	total := Seconds(now.Sub(s.StartTime))
	effective := total - breakSeconds - pauseSeconds
	if opts.ClampEffective && effective < 0 {
		effective = 0
	}

	s.EndTime = timePtr(now)
	s.Status = models.StatusCompleted
	s.PausedAt = nil
	s.TotalDuration = &total
	s.EffectiveStudyTime = &effective
	s.UpdatedAt = now
	return s, nil
}

// CurrentDuration returns the seconds elapsed from start to end, or to now
// while the session is still running.
func CurrentDuration(s models.StudySession, now time.Time) int {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return Seconds(end.Sub(s.StartTime))
}

func IsActive(s models.StudySession) bool {
	return s.Status == models.StatusActive
}

// InFlight reports whether the session is ACTIVE or PAUSED.
func InFlight(s models.StudySession) bool {
	return s.Status == models.StatusActive || s.Status == models.StatusPaused
}

// OwnedBy is the authorization gate used by the lifecycle operations.
func OwnedBy(s models.StudySession, userID string) bool {
	return s.UserID == userID
}

// SilentPauseSeconds returns the in-progress pause time of a session paused
// without a break, or 0 otherwise.
func SilentPauseSeconds(s models.StudySession, hasOpenBreak bool, now time.Time) int {
	if s.Status != models.StatusPaused || s.PausedAt == nil || hasOpenBreak {
		return 0
	}
	return Seconds(now.Sub(*s.PausedAt))
}

// Seconds converts a duration to whole seconds, rounding toward negative
// infinity.
func Seconds(d time.Duration) int {
	secs := d / time.Second
	if d < 0 && d%time.Second != 0 {
		secs--
	}
	return int(secs)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
