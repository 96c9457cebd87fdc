// Package capturelogs records one row per capture attempt and enforces its
// status machine in the database.
package capturelogs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Status is the lifecycle state of a capture attempt.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is permitted.
// pending→in_progress→{completed,failed}; pending→failed covers runs
// that die before the capture starts.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Trigger records what started the attempt.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// SystemActor identifies attempts started without a caller identity,
// including every scheduled tick.
var SystemActor = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// CaptureLog is the relational record of one capture attempt.
type CaptureLog struct {
	ID           uuid.UUID             `json:"id"`
	ScheduleID   *uuid.UUID            `json:"schedule_id,omitempty"`
	CredentialID *uuid.UUID            `json:"credential_id,omitempty"`
	CaptureType  tribunals.CaptureType `json:"capture_type"`
	TribunalCode string                `json:"tribunal_code"`
	Degree       tribunals.Degree      `json:"degree"`
	LawyerID     uuid.UUID             `json:"lawyer_id"`
	Trigger      Trigger               `json:"trigger"`
	RequestedBy  uuid.UUID             `json:"requested_by"`
	Status       Status                `json:"status"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	Result       json.RawMessage       `json:"result,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	StartedAt    *time.Time            `json:"started_at,omitempty"`
	FinishedAt   *time.Time            `json:"finished_at,omitempty"`
}

// CreateCommand describes a new pending attempt. A zero RequestedBy is
// recorded as SystemActor.
type CreateCommand struct {
	ScheduleID   *uuid.UUID
	CredentialID *uuid.UUID
	CaptureType  tribunals.CaptureType
	TribunalCode string
	Degree       tribunals.Degree
	LawyerID     uuid.UUID
	Trigger      Trigger
	RequestedBy  uuid.UUID
}

// Actor returns the recorded requester.
func (c CreateCommand) Actor() uuid.UUID {
	if c.RequestedBy == uuid.Nil {
		return SystemActor
	}
	return c.RequestedBy
}
