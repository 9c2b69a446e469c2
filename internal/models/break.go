package models

import "time"

// Break is a rest interval inside a study session. Duration is nil while
// the break is open.
type Break struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  *int       `json:"duration"`
	CreatedAt time.Time  `json:"created_at"`
}

func (b Break) IsOpen() bool {
	return b.EndTime == nil
}
