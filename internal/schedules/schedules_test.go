package schedules_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/internal/schedules/schedulestest"
	"github.com/JaimeStill/tribunal/pkg/pagination"
	"github.com/JaimeStill/tribunal/pkg/query"
)

func TestDue(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		active bool
		next   time.Time
		want   bool
	}{
		{"past", true, now.Add(-time.Minute), true},
		{"exactly now", true, now, true},
		{"future", true, now.Add(time.Second), false},
		{"inactive past", false, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schedules.Schedule{Active: tt.active, NextRunAt: tt.next}
			if got := s.Due(now); got != tt.want {
				t.Errorf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterval(t *testing.T) {
	s := schedules.Schedule{IntervalMinutes: 60}
	if got := s.Interval(); got != time.Hour {
		t.Errorf("Interval = %v, want 1h", got)
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := schedules.FiltersFromQuery(url.Values{
		"tribunal_code": {"TRT3"},
		"active":        {"false"},
		"lawyer_id":     {"not-a-uuid"},
	})

	if f.TribunalCode == nil || *f.TribunalCode != "TRT3" {
		t.Errorf("TribunalCode = %v", f.TribunalCode)
	}
	if f.Active == nil || *f.Active {
		t.Errorf("Active = %v, want false", f.Active)
	}
	if f.LawyerID != nil {
		t.Errorf("LawyerID = %v, want nil", f.LawyerID)
	}
}

func TestFiltersApply(t *testing.T) {
	projection := query.
		NewProjectionMap("public", "schedules", "s").
		Project("tribunal_code", "TribunalCode").
		Project("degree", "Degree").
		Project("capture_type", "CaptureType").
		Project("lawyer_id", "LawyerID").
		Project("active", "Active").
		Project("last_status", "LastStatus")

	active := true
	b := query.NewBuilder(projection)
	schedules.Filters{Active: &active}.Apply(b)
	sql, args := b.Build()

	want := "SELECT s.tribunal_code, s.degree, s.capture_type, s.lawyer_id, s.active, s.last_status FROM public.schedules s WHERE s.active = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("args = %v, want 1", args)
	}
}

func TestHandler(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store := schedulestest.New()
	id := store.Put(schedules.Schedule{TribunalCode: "TRT3", Active: true, IntervalMinutes: 60, NextRunAt: now})
	store.Put(schedules.Schedule{TribunalCode: "TRT2", Active: false, NextRunAt: now})

	mux := http.NewServeMux()
	group := store.Handler().Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	t.Run("list active", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules?active=true", nil))

		var page pagination.PageResult[schedules.Schedule]
		json.NewDecoder(rec.Body).Decode(&page)
		if rec.Code != http.StatusOK || page.Total != 1 || page.Data[0].ID != id {
			t.Errorf("status %d, page %+v", rec.Code, page)
		}
	})

	t.Run("find", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/"+id.String(), nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/xyz", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
