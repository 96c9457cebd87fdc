// Package schedules reads recurring capture configuration and records the
// outcome of each run against it.
package schedules

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Schedule describes when and what to capture for one lawyer at one tribunal.
// Params carries the executor's domain filters as stored JSON.
type Schedule struct {
	ID              uuid.UUID             `json:"id"`
	TribunalCode    string                `json:"tribunal_code"`
	Degree          tribunals.Degree      `json:"degree"`
	CaptureType     tribunals.CaptureType `json:"capture_type"`
	LawyerID        uuid.UUID             `json:"lawyer_id"`
	CredentialID    *uuid.UUID            `json:"credential_id,omitempty"`
	IntervalMinutes int                   `json:"interval_minutes"`
	Active          bool                  `json:"active"`
	Params          json.RawMessage       `json:"params,omitempty"`
	NextRunAt       time.Time             `json:"next_run_at"`
	LastRunAt       *time.Time            `json:"last_run_at,omitempty"`
	LastStatus      *string               `json:"last_status,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// Interval returns the schedule period.
func (s *Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Due reports whether an automatic tick at now should run the schedule.
func (s *Schedule) Due(now time.Time) bool {
	return s.Active && !s.NextRunAt.After(now)
}
