package capturelogs_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/capturelogs/capturelogstest"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/query"
)

func ptr[T any](v T) *T { return &v }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from capturelogs.Status
		to   capturelogs.Status
		want bool
	}{
		{capturelogs.StatusPending, capturelogs.StatusInProgress, true},
		{capturelogs.StatusPending, capturelogs.StatusFailed, true},
		{capturelogs.StatusPending, capturelogs.StatusCompleted, false},
		{capturelogs.StatusInProgress, capturelogs.StatusCompleted, true},
		{capturelogs.StatusInProgress, capturelogs.StatusFailed, true},
		{capturelogs.StatusInProgress, capturelogs.StatusPending, false},
		{capturelogs.StatusCompleted, capturelogs.StatusFailed, false},
		{capturelogs.StatusCompleted, capturelogs.StatusInProgress, false},
		{capturelogs.StatusFailed, capturelogs.StatusCompleted, false},
		{capturelogs.StatusFailed, capturelogs.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActorDefaultsToSystem(t *testing.T) {
	if got := (capturelogs.CreateCommand{}).Actor(); got != capturelogs.SystemActor {
		t.Errorf("Actor() = %s, want %s", got, capturelogs.SystemActor)
	}

	caller := uuid.New()
	if got := (capturelogs.CreateCommand{RequestedBy: caller}).Actor(); got != caller {
		t.Errorf("Actor() = %s, want %s", got, caller)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", capturelogs.ErrNotFound, http.StatusNotFound},
		{"duplicate", capturelogs.ErrDuplicate, http.StatusConflict},
		{"invalid transition", fmt.Errorf("%w: completed -> failed", capturelogs.ErrInvalidTransition), http.StatusConflict},
		{"invalid id", capturelogs.ErrInvalidID, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := capturelogs.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	schedule := uuid.New()

	t.Run("all params present", func(t *testing.T) {
		f := capturelogs.FiltersFromQuery(url.Values{
			"capture_type":  {"hearings"},
			"tribunal_code": {"TRT3"},
			"degree":        {"first_instance"},
			"status":        {"failed"},
			"trigger":       {"manual"},
			"schedule_id":   {schedule.String()},
			"from":          {"2026-10-01"},
			"to":            {"2026-10-18T12:00:00Z"},
		})

		if f.CaptureType == nil || *f.CaptureType != "hearings" {
			t.Errorf("CaptureType = %v, want hearings", f.CaptureType)
		}
		if f.Status == nil || *f.Status != "failed" {
			t.Errorf("Status = %v, want failed", f.Status)
		}
		if f.ScheduleID == nil || *f.ScheduleID != schedule {
			t.Errorf("ScheduleID = %v, want %s", f.ScheduleID, schedule)
		}
		if f.From == nil || !f.From.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("From = %v, want 2026-10-01", f.From)
		}
		if f.To == nil || f.To.Hour() != 12 {
			t.Errorf("To = %v, want 12:00", f.To)
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		f := capturelogs.FiltersFromQuery(url.Values{
			"schedule_id": {"nope"},
			"lawyer_id":   {"nope"},
			"from":        {"yesterday"},
		})

		if f.ScheduleID != nil || f.LawyerID != nil || f.From != nil {
			t.Errorf("invalid values parsed: %+v", f)
		}
	})
}

func TestFiltersApply(t *testing.T) {
	projection := query.
		NewProjectionMap("public", "capture_logs", "cl").
		Project("capture_type", "CaptureType").
		Project("tribunal_code", "TribunalCode").
		Project("degree", "Degree").
		Project("status", "Status").
		Project("trigger", "Trigger").
		Project("schedule_id", "ScheduleID").
		Project("lawyer_id", "LawyerID").
		Project("created_at", "CreatedAt")

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	b := query.NewBuilder(projection)
	capturelogs.Filters{
		Status: ptr("failed"),
		From:   &from,
	}.Apply(b)
	sql, args := b.Build()

	want := "SELECT cl.capture_type, cl.tribunal_code, cl.degree, cl.status, cl.trigger, cl.schedule_id, cl.lawyer_id, cl.created_at " +
		"FROM public.capture_logs cl WHERE cl.status = $1 AND cl.created_at >= $2"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want 2", args)
	}
}

func TestMemoryTransitions(t *testing.T) {
	ctx := context.Background()
	store := capturelogstest.New()

	l, err := store.Create(ctx, capturelogs.CreateCommand{
		CaptureType:  tribunals.Hearings,
		TribunalCode: "TRT3",
		Degree:       tribunals.FirstInstance,
		Trigger:      capturelogs.TriggerAuto,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Status != capturelogs.StatusPending {
		t.Fatalf("status = %s, want pending", l.Status)
	}
	if l.RequestedBy != capturelogs.SystemActor {
		t.Errorf("RequestedBy = %s, want system actor", l.RequestedBy)
	}

	if err := store.Complete(ctx, l.ID, nil); !errors.Is(err, capturelogs.ErrInvalidTransition) {
		t.Errorf("Complete from pending = %v, want ErrInvalidTransition", err)
	}
	if err := store.Start(ctx, l.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.Complete(ctx, l.ID, json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := store.Fail(ctx, l.ID, "late", nil); !errors.Is(err, capturelogs.ErrInvalidTransition) {
		t.Errorf("Fail after completed = %v, want ErrInvalidTransition", err)
	}

	got, _ := store.Find(ctx, l.ID)
	if got.Status != capturelogs.StatusCompleted || got.StartedAt == nil || got.FinishedAt == nil {
		t.Errorf("log = %+v, want completed with timestamps", got)
	}

	if err := store.Start(ctx, uuid.New()); !errors.Is(err, capturelogs.ErrNotFound) {
		t.Errorf("Start unknown = %v, want ErrNotFound", err)
	}
}
