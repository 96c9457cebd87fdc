package schedules

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/pkg/query"
	"github.com/JaimeStill/tribunal/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "schedules", "s").
	Project("id", "ID").
	Project("tribunal_code", "TribunalCode").
	Project("degree", "Degree").
	Project("capture_type", "CaptureType").
	Project("lawyer_id", "LawyerID").
	Project("credential_id", "CredentialID").
	Project("interval_minutes", "IntervalMinutes").
	Project("active", "Active").
	Project("params", "Params").
	Project("next_run_at", "NextRunAt").
	Project("last_run_at", "LastRunAt").
	Project("last_status", "LastStatus").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "NextRunAt"}

// Filters contains optional filtering criteria for schedule queries.
type Filters struct {
	TribunalCode *string    `json:"tribunal_code,omitempty"`
	Degree       *string    `json:"degree,omitempty"`
	CaptureType  *string    `json:"capture_type,omitempty"`
	LawyerID     *uuid.UUID `json:"lawyer_id,omitempty"`
	Active       *bool      `json:"active,omitempty"`
	LastStatus   *string    `json:"last_status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("TribunalCode", f.TribunalCode).
		WhereEquals("Degree", f.Degree).
		WhereEquals("CaptureType", f.CaptureType).
		WhereEquals("LawyerID", f.LawyerID).
		WhereEquals("Active", f.Active).
		WhereEquals("LastStatus", f.LastStatus)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("tribunal_code"); v != "" {
		f.TribunalCode = &v
	}
	if v := values.Get("degree"); v != "" {
		f.Degree = &v
	}
	if v := values.Get("capture_type"); v != "" {
		f.CaptureType = &v
	}
	if v := values.Get("lawyer_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.LawyerID = &id
		}
	}
	if v := values.Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Active = &b
		}
	}
	if v := values.Get("last_status"); v != "" {
		f.LastStatus = &v
	}

	return f
}

func scanSchedule(s repository.Scanner) (Schedule, error) {
	var (
		sc     Schedule
		params []byte
	)
	err := s.Scan(
		&sc.ID,
		&sc.TribunalCode,
		&sc.Degree,
		&sc.CaptureType,
		&sc.LawyerID,
		&sc.CredentialID,
		&sc.IntervalMinutes,
		&sc.Active,
		&params,
		&sc.NextRunAt,
		&sc.LastRunAt,
		&sc.LastStatus,
		&sc.CreatedAt,
		&sc.UpdatedAt,
	)
	if len(params) > 0 {
		sc.Params = params
	}
	return sc, err
}
