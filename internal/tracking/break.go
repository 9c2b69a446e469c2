package tracking

import (
	"fmt"
	"time"

	"studytime-backend/internal/models"
)

// ErrBreakAlreadyEnded is returned by EndBreak for a closed break.
var ErrBreakAlreadyEnded = fmt.Errorf("%w: break already ended", ErrInvalidState)

func NewBreak(id, sessionID string, now time.Time) models.Break {
	return models.Break{
		ID:        id,
		SessionID: sessionID,
		StartTime: now,
		CreatedAt: now,
	}
}

// EndBreak closes an open break and fixes its duration.
func EndBreak(b models.Break, now time.Time) (models.Break, error) {
	if b.EndTime != nil {
		return b, ErrBreakAlreadyEnded
	}

	d := Seconds(now.Sub(b.StartTime))
	b.EndTime = timePtr(now)
	b.Duration = &d
	return b, nil
}

// BreakDuration returns the fixed duration of an ended break, or a live
// estimate for an open one. The estimate is for display only.
func BreakDuration(b models.Break, now time.Time) int {
	if b.EndTime == nil {
		return Seconds(now.Sub(b.StartTime))
	}
	if b.Duration != nil {
		return *b.Duration
	}
	return Seconds(b.EndTime.Sub(b.StartTime))
}

// BreakSummary aggregates the breaks of one session.
type BreakSummary struct {
	// EndedSeconds is the sum of durations of ended breaks.
	EndedSeconds int
	// OpenSeconds is the live estimate for the open break, if any.
	OpenSeconds int
	// Open is the index of the open break in the input, or -1.
	Open int
}

func (s BreakSummary) HasOpen() bool {
	return s.Open >= 0
}

// SummarizeBreaks walks breaks once. When more than one break is open,
// the earliest one is reported.
func SummarizeBreaks(breaks []models.Break, now time.Time) BreakSummary {
	sum := BreakSummary{Open: -1}
	for i, b := range breaks {
		if b.EndTime == nil {
			if sum.Open < 0 {
				sum.Open = i
				sum.OpenSeconds = BreakDuration(b, now)
			}
			continue
		}
		sum.EndedSeconds += BreakDuration(b, now)
	}
	return sum
}
