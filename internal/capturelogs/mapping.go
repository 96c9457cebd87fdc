package capturelogs

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/pkg/query"
	"github.com/JaimeStill/tribunal/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "capture_logs", "cl").
	Project("id", "ID").
	Project("schedule_id", "ScheduleID").
	Project("credential_id", "CredentialID").
	Project("capture_type", "CaptureType").
	Project("tribunal_code", "TribunalCode").
	Project("degree", "Degree").
	Project("lawyer_id", "LawyerID").
	Project("trigger", "Trigger").
	Project("requested_by", "RequestedBy").
	Project("status", "Status").
	Project("error_message", "ErrorMessage").
	Project("result", "Result").
	Project("created_at", "CreatedAt").
	Project("started_at", "StartedAt").
	Project("finished_at", "FinishedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for capture log queries.
// Nil fields are ignored. From and To bound CreatedAt as [From, To).
type Filters struct {
	CaptureType  *string    `json:"capture_type,omitempty"`
	TribunalCode *string    `json:"tribunal_code,omitempty"`
	Degree       *string    `json:"degree,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Trigger      *string    `json:"trigger,omitempty"`
	ScheduleID   *uuid.UUID `json:"schedule_id,omitempty"`
	LawyerID     *uuid.UUID `json:"lawyer_id,omitempty"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("CaptureType", f.CaptureType).
		WhereEquals("TribunalCode", f.TribunalCode).
		WhereEquals("Degree", f.Degree).
		WhereEquals("Status", f.Status).
		WhereEquals("Trigger", f.Trigger).
		WhereEquals("ScheduleID", f.ScheduleID).
		WhereEquals("LawyerID", f.LawyerID).
		WhereAtLeast("CreatedAt", f.From).
		WhereBefore("CreatedAt", f.To)
}

// Matches reports whether l satisfies every set filter. In-memory stores
// use it to mirror Apply.
func (f Filters) Matches(l *CaptureLog) bool {
	switch {
	case f.CaptureType != nil && string(l.CaptureType) != *f.CaptureType:
		return false
	case f.TribunalCode != nil && l.TribunalCode != *f.TribunalCode:
		return false
	case f.Degree != nil && string(l.Degree) != *f.Degree:
		return false
	case f.Status != nil && string(l.Status) != *f.Status:
		return false
	case f.Trigger != nil && string(l.Trigger) != *f.Trigger:
		return false
	case f.ScheduleID != nil && (l.ScheduleID == nil || *l.ScheduleID != *f.ScheduleID):
		return false
	case f.LawyerID != nil && l.LawyerID != *f.LawyerID:
		return false
	case f.From != nil && l.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !l.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Dates accept RFC 3339 or YYYY-MM-DD.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	f.CaptureType = optional(values, "capture_type")
	f.TribunalCode = optional(values, "tribunal_code")
	f.Degree = optional(values, "degree")
	f.Status = optional(values, "status")
	f.Trigger = optional(values, "trigger")

	if s := values.Get("schedule_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.ScheduleID = &id
		}
	}

	if s := values.Get("lawyer_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.LawyerID = &id
		}
	}

	f.From = parseDate(values.Get("from"))
	f.To = parseDate(values.Get("to"))

	return f
}

func optional(values url.Values, key string) *string {
	if v := values.Get(key); v != "" {
		return &v
	}
	return nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func scanCaptureLog(s repository.Scanner) (CaptureLog, error) {
	var (
		l      CaptureLog
		result []byte
	)
	err := s.Scan(
		&l.ID,
		&l.ScheduleID,
		&l.CredentialID,
		&l.CaptureType,
		&l.TribunalCode,
		&l.Degree,
		&l.LawyerID,
		&l.Trigger,
		&l.RequestedBy,
		&l.Status,
		&l.ErrorMessage,
		&result,
		&l.CreatedAt,
		&l.StartedAt,
		&l.FinishedAt,
	)
	if len(result) > 0 {
		l.Result = result
	}
	return l, err
}
