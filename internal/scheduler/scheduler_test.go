package scheduler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/capturelogs/capturelogstest"
	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/captures/capturestest"
	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/rawlogs/rawlogstest"
	"github.com/JaimeStill/tribunal/internal/scheduler"
	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/internal/schedules/schedulestest"
	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/session/sessiontest"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/internal/tribunals/tribunalstest"
	"github.com/JaimeStill/tribunal/pkg/cache"
	"github.com/JaimeStill/tribunal/pkg/retry"
	"github.com/JaimeStill/tribunal/pkg/storage/storagetest"
)

var (
	discard = slog.New(slog.DiscardHandler)
	now     = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	lawyer  = uuid.MustParse("7d7c1f8e-4a55-4d0b-9a51-2f1a3c0e9b10")
)

func noSleep(context.Context, time.Duration) error { return nil }

type fixture struct {
	schedules *schedulestest.Memory
	logs      *capturelogstest.Memory
	raw       *rawlogstest.Memory
	refs      *tribunalstest.Memory
	fake      *sessiontest.Transport
	store     *capturestest.Store
	cred      tribunals.Credential
	sched     *scheduler.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := func() time.Time { return now }

	f := &fixture{
		schedules: schedulestest.New(),
		logs:      capturelogstest.New(),
		raw:       rawlogstest.New(),
		refs:      tribunalstest.New(),
		fake:      sessiontest.New(),
		store:     capturestest.New(),
	}
	f.logs.Now = clock
	f.raw.Now = clock

	f.refs.AddPortal(tribunals.Portal{Code: "TRT3", Degree: tribunals.FirstInstance, APIURL: "https://pje.trt3.test/api"})
	f.cred = f.refs.AddCredential(tribunals.Credential{
		TribunalCode: "TRT3",
		Degree:       tribunals.FirstInstance,
		LawyerID:     lawyer,
		Username:     "12345678900",
		LoginSecret:  "secret",
		Active:       true,
	})

	registry := captures.NewRegistry(captures.Deps{
		Store:   f.store,
		Storage: storagetest.New(),
		Cache:   cache.New(&cache.Config{}, discard),
		Retry:   retry.New(retry.Config{}, retry.WithSleep(noSleep)),
		Logger:  discard,
		Now:     clock,
	})

	f.sched = scheduler.New(
		config.SchedulerConfig{
			Workers:       4,
			TickInterval:  "1m",
			RunTimeout:    "1m",
			LoginAttempts: 3,
			LoginBackoff:  "1ms",
		},
		scheduler.Deps{
			Schedules: f.schedules,
			Logs:      f.logs,
			RawLogs:   f.raw,
			Tribunals: f.refs,
			Sessions:  session.NewProvider(f.fake, nil, discard),
			Registry:  registry,
			Logger:    discard,
			Now:       clock,
			Sleep:     noSleep,
		},
	)
	return f
}

func (f *fixture) hearings(n, perPage int) {
	f.fake.Pages("hearings", capturestest.Paged(capturestest.Hearings(1, n), perPage)...)
}

func (f *fixture) schedule(next time.Time) uuid.UUID {
	return f.schedules.Put(schedules.Schedule{
		TribunalCode:    "TRT3",
		Degree:          tribunals.FirstInstance,
		CaptureType:     tribunals.Hearings,
		LawyerID:        lawyer,
		IntervalMinutes: 60,
		Active:          true,
		NextRunAt:       next,
	})
}

func (f *fixture) onlyLog(t *testing.T) capturelogs.CaptureLog {
	t.Helper()
	all := f.logs.All()
	if len(all) != 1 {
		t.Fatalf("capture logs = %d, want 1", len(all))
	}
	return all[0]
}

func TestTickCapturesDueHearings(t *testing.T) {
	f := newFixture(t)
	f.hearings(150, 50)
	id := f.schedule(now.Add(-time.Minute))

	report, err := f.sched.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Due != 1 || report.Completed != 1 {
		t.Errorf("report = %+v, want one completed run", report)
	}

	l := f.onlyLog(t)
	if l.Status != capturelogs.StatusCompleted {
		t.Fatalf("status = %s (%v), want completed", l.Status, l.ErrorMessage)
	}
	if l.Trigger != capturelogs.TriggerAuto || l.RequestedBy != capturelogs.SystemActor {
		t.Errorf("trigger = %s by %s, want auto by system actor", l.Trigger, l.RequestedBy)
	}
	if got := len(f.store.Hearings()); got != 150 {
		t.Errorf("hearings = %d, want 150", got)
	}

	doc, err := f.raw.FindByCaptureLog(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("raw log: %v", err)
	}
	if doc.Status != rawlogs.StatusCompleted || !doc.PayloadAvailable() {
		t.Errorf("raw log status = %s, payload = %v; want completed with payload", doc.Status, doc.PayloadAvailable())
	}
	if doc.ResultProcessed == nil || doc.ResultProcessed.Totals.Persisted != 150 {
		t.Errorf("result = %+v, want 150 persisted", doc.ResultProcessed)
	}
	if len(doc.Logs) == 0 {
		t.Error("raw log has no journal entries")
	}

	sc := f.schedules.Get(id)
	if want := now.Add(60 * time.Minute); !sc.NextRunAt.Equal(want) {
		t.Errorf("next_run_at = %s, want %s", sc.NextRunAt, want)
	}
	if sc.LastStatus == nil || *sc.LastStatus != "completed" {
		t.Errorf("last_status = %v, want completed", sc.LastStatus)
	}
}

func TestRawLogKeepsPortalPayloadVerbatim(t *testing.T) {
	f := newFixture(t)
	item := json.RawMessage(`{"id":1,"starts_at":"2026-11-01T09:00:00Z","status":"scheduled","meta":{"$date":"2024-01-01"},"seq":99999999999999999999}`)
	f.fake.Pages("hearings", capturestest.Page(1, 10, 1, 1, []json.RawMessage{item}))
	f.schedule(now.Add(-time.Minute))

	if _, err := f.sched.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	l := f.onlyLog(t)
	if l.Status != capturelogs.StatusCompleted {
		t.Fatalf("status = %s (%v), want completed", l.Status, l.ErrorMessage)
	}

	doc, err := f.raw.FindByCaptureLog(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("raw log: %v", err)
	}
	if doc.Status != rawlogs.StatusCompleted || !doc.PayloadAvailable() {
		t.Fatalf("raw log status = %s, payload = %v; want completed with payload", doc.Status, doc.PayloadAvailable())
	}
	for _, want := range []string{`{"$date":"2024-01-01"}`, `99999999999999999999`} {
		if !strings.Contains(string(doc.Payload()), want) {
			t.Errorf("payload lost %s: %s", want, doc.Payload())
		}
	}

	var summary captures.Result
	if err := json.Unmarshal(l.Result, &summary); err != nil || summary.Totals.Persisted != 1 {
		t.Errorf("capture log result = %s (%v), want one persisted", l.Result, err)
	}
	for _, e := range doc.Logs {
		if strings.Contains(e.Message, "encode") {
			t.Errorf("journal reports an encoding failure: %s", e.Message)
		}
	}
}

func TestInvalidCredentialsFailWithoutRetry(t *testing.T) {
	f := newFixture(t)
	f.hearings(50, 50)
	f.fake.FailLogins(session.ErrInvalidCredentials)
	id := f.schedule(now)

	report, _ := f.sched.Tick(context.Background(), now)
	if report.Failed != 1 {
		t.Errorf("report = %+v, want one failure", report)
	}

	l := f.onlyLog(t)
	if l.Status != capturelogs.StatusFailed {
		t.Fatalf("status = %s, want failed", l.Status)
	}
	if l.ErrorMessage == nil || !strings.Contains(*l.ErrorMessage, "credential") {
		t.Errorf("error message = %v, want mention of credential", l.ErrorMessage)
	}
	if got := f.fake.Logins(f.cred.ID); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}

	doc, err := f.raw.FindByCaptureLog(context.Background(), l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != rawlogs.StatusFailed || doc.ErrorDetail == nil || doc.ErrorDetail.Code != "credential_invalid" {
		t.Errorf("raw log = %s %+v, want failed credential_invalid", doc.Status, doc.ErrorDetail)
	}

	if sc := f.schedules.Get(id); !sc.NextRunAt.Equal(now.Add(time.Hour)) {
		t.Errorf("failed run did not consume its slot: next_run_at = %s", sc.NextRunAt)
	}
}

func TestUnavailablePortalRetriesLogin(t *testing.T) {
	f := newFixture(t)
	f.hearings(10, 10)
	f.fake.FailLogins(session.ErrPortalUnavailable, session.ErrPortalUnavailable)
	f.schedule(now)

	f.sched.Tick(context.Background(), now)

	if l := f.onlyLog(t); l.Status != capturelogs.StatusCompleted {
		t.Errorf("status = %s, want completed", l.Status)
	}
	if got := f.fake.Logins(f.cred.ID); got != 3 {
		t.Errorf("logins = %d, want 3", got)
	}
}

func TestUnresolvedCredentialFailsBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.schedules.Put(schedules.Schedule{
		TribunalCode:    "TRT3",
		Degree:          tribunals.FirstInstance,
		CaptureType:     tribunals.Docket,
		LawyerID:        uuid.New(),
		IntervalMinutes: 30,
		Active:          true,
		NextRunAt:       now,
	})

	f.sched.Tick(context.Background(), now)

	l := f.onlyLog(t)
	if l.Status != capturelogs.StatusFailed || l.StartedAt != nil {
		t.Errorf("log = %s started %v, want failed without start", l.Status, l.StartedAt)
	}
	if l.ErrorMessage == nil || !strings.Contains(*l.ErrorMessage, "credential") {
		t.Errorf("error message = %v", l.ErrorMessage)
	}
	if len(f.raw.All()) != 0 {
		t.Error("raw log opened for a run that never started")
	}
}

func TestTickSkipsSchedulesNotDue(t *testing.T) {
	f := newFixture(t)
	id := f.schedule(now.Add(time.Minute))

	report, err := f.sched.Tick(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if report.Due != 0 || len(f.logs.All()) != 0 || f.schedules.Advances(id) != 0 {
		t.Errorf("report = %+v, want nothing run", report)
	}
}

func TestManualTriggerKeepsNextRunAt(t *testing.T) {
	f := newFixture(t)
	f.hearings(20, 10)
	next := now.Add(30 * time.Minute)
	id := f.schedule(next)
	actor := uuid.New()

	res, err := f.sched.Trigger(context.Background(), id, actor)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.Status != capturelogs.StatusInProgress || res.CaptureLogID == uuid.Nil {
		t.Errorf("result = %+v, want in_progress with log id", res)
	}

	f.sched.Wait()

	sc := f.schedules.Get(id)
	if !sc.NextRunAt.Equal(next) || f.schedules.Advances(id) != 0 {
		t.Errorf("next_run_at = %s, want unchanged %s", sc.NextRunAt, next)
	}
	if sc.LastStatus == nil || *sc.LastStatus != "completed" {
		t.Errorf("last_status = %v, want completed", sc.LastStatus)
	}

	l := f.onlyLog(t)
	if l.ID != res.CaptureLogID || l.Trigger != capturelogs.TriggerManual || l.RequestedBy != actor {
		t.Errorf("log = %+v, want manual run by %s", l, actor)
	}
}

func TestInFlightScheduleIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.hearings(30, 10)
	f.fake.Hold = 50 * time.Millisecond
	id := f.schedule(now)

	if _, err := f.sched.Trigger(context.Background(), id, uuid.Nil); err != nil {
		t.Fatal(err)
	}

	if _, err := f.sched.Trigger(context.Background(), id, uuid.Nil); !errors.Is(err, scheduler.ErrInFlight) {
		t.Errorf("second Trigger = %v, want ErrInFlight", err)
	}

	report, _ := f.sched.Tick(context.Background(), now)
	if report.Skipped != 1 {
		t.Errorf("report = %+v, want the running schedule skipped", report)
	}

	f.sched.Wait()

	if got := f.schedules.Advances(id); got != 0 {
		t.Errorf("advances = %d, want 0", got)
	}
	if got := len(f.logs.All()); got != 1 {
		t.Errorf("capture logs = %d, want 1", got)
	}
}

func TestSharedCredentialRunsSerially(t *testing.T) {
	f := newFixture(t)
	f.hearings(20, 10)
	f.fake.Hold = 5 * time.Millisecond
	f.schedule(now)
	f.schedule(now)
	f.schedule(now)

	report, _ := f.sched.Tick(context.Background(), now)
	if report.Completed != 3 {
		t.Errorf("report = %+v, want 3 completed", report)
	}
	if got := f.fake.MaxActive(f.cred.ID); got != 1 {
		t.Errorf("max concurrent sessions = %d, want 1", got)
	}
}

func TestRerunDoesNotDuplicateRows(t *testing.T) {
	f := newFixture(t)
	f.hearings(60, 20)
	f.schedule(now)

	f.sched.Tick(context.Background(), now)
	f.sched.Tick(context.Background(), now.Add(time.Hour))

	if got := len(f.logs.All()); got != 2 {
		t.Fatalf("capture logs = %d, want 2", got)
	}
	if got := len(f.store.Hearings()); got != 60 {
		t.Errorf("hearings = %d, want 60", got)
	}
	if got := f.store.Writes(); got != 120 {
		t.Errorf("writes = %d, want 120", got)
	}
}

func TestInactiveScheduleCannotBeTriggered(t *testing.T) {
	f := newFixture(t)
	id := f.schedules.Put(schedules.Schedule{TribunalCode: "TRT3", CaptureType: tribunals.Docket, Active: false})

	_, err := f.sched.Trigger(context.Background(), id, uuid.Nil)
	if !errors.Is(err, schedules.ErrInactive) {
		t.Errorf("Trigger = %v, want ErrInactive", err)
	}
}

func TestTriggerHandler(t *testing.T) {
	f := newFixture(t)
	f.hearings(10, 10)
	id := f.schedule(now.Add(time.Hour))
	actor := uuid.New()

	mux := http.NewServeMux()
	group := f.sched.Handler().Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"accepted", "/schedules/" + id.String() + "/trigger", http.StatusAccepted},
		{"invalid id", "/schedules/nope/trigger", http.StatusBadRequest},
		{"unknown", "/schedules/" + uuid.NewString() + "/trigger", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.Header.Set(capturelogs.ActorHeader, actor.String())
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.status != http.StatusAccepted {
				return
			}

			var body map[string]string
			json.NewDecoder(rec.Body).Decode(&body)
			if body["status"] != "in_progress" || body["capture_log_id"] == "" {
				t.Errorf("body = %v", body)
			}
		})
	}

	f.sched.Wait()

	if l := f.onlyLog(t); l.RequestedBy != actor {
		t.Errorf("requested_by = %s, want %s", l.RequestedBy, actor)
	}
}
