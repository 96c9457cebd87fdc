package rawlogs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/rawlogs/rawlogstest"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

func ptr[T any](v T) *T { return &v }

func TestPayloadIsStoredVerbatim(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
	}{
		{"plain", `{"type":"hearings","from":"2026-10-18","pages":[{"page":1,"total":150,"items":[{"id":10,"virtual":true}]}]}`},
		{"date wrapper", `{"type":"hearings","pages":[{"page":1,"items":[{"id":1,"meta":{"$date":"2024-01-01"}}]}]}`},
		{"oid wrapper", `{"items":[{"ref":{"$oid":"abc"}}]}`},
		{"binary wrapper", `{"items":[{"blob":{"$binary":"x"}}]}`},
		{"number long wrapper", `{"count":{"$numberLong":"5"}}`},
		{"beyond int64", `{"id":99999999999999999999,"ratio":1.50}`},
		{"whitespace and key order", "{ \"z\": 1,\n  \"a\": [ ] }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := rawlogstest.New()
			doc, err := store.Create(ctx, rawlogs.CreateCommand{CaptureLogID: uuid.New(), CaptureType: tribunals.Hearings})
			if err != nil {
				t.Fatal(err)
			}

			if err := store.Complete(ctx, doc.ID, rawlogs.Outcome{Payload: json.RawMessage(tt.payload)}); err != nil {
				t.Fatalf("Complete: %v", err)
			}

			stored, err := store.Find(ctx, doc.ID)
			if err != nil {
				t.Fatal(err)
			}
			if stored.Status != rawlogs.StatusCompleted {
				t.Errorf("status = %s, want completed", stored.Status)
			}
			if !stored.PayloadAvailable() {
				t.Fatal("PayloadAvailable = false, want true")
			}
			if got := string(stored.Payload()); got != tt.payload {
				t.Errorf("payload = %s, want %s", got, tt.payload)
			}
		})
	}
}

func TestVerbatimCopies(t *testing.T) {
	for _, in := range [][]byte{nil, {}, []byte("null")} {
		if got := rawlogs.Verbatim(in); got != nil {
			t.Errorf("Verbatim(%q) = %s, want nil", in, got)
		}
	}

	in := []byte(`{"id":1}`)
	got := rawlogs.Verbatim(in)
	in[1] = 'X'
	if string(got) != `{"id":1}` {
		t.Errorf("Verbatim shares the input buffer: %s", got)
	}
}

func TestFiltersDocument(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	f := rawlogs.Filters{
		CaptureType:  ptr("timeline"),
		TribunalCode: ptr("TRT3"),
		From:         &from,
	}

	got := f.Document(ptr("TRT"))

	keys := make([]string, len(got))
	for i, e := range got {
		keys[i] = e.Key
	}
	want := []string{"captureType", "tribunalCode", "createdAt", "$or"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	window, ok := got[2].Value.(bson.D)
	if !ok || len(window) != 1 || window[0].Key != "$gte" {
		t.Errorf("createdAt = %v, want $gte only", got[2].Value)
	}

	if empty := (rawlogs.Filters{}).Document(nil); empty == nil || len(empty) != 0 {
		t.Errorf("empty filter = %v, want empty document", empty)
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := rawlogs.FiltersFromQuery(url.Values{
		"capture_type": {"pending"},
		"status":       {"failed"},
		"degree":       {"second_instance"},
		"to":           {"2026-10-18"},
		"from":         {"garbage"},
	})

	if f.CaptureType == nil || *f.CaptureType != "pending" {
		t.Errorf("CaptureType = %v", f.CaptureType)
	}
	if f.Status == nil || *f.Status != "failed" {
		t.Errorf("Status = %v", f.Status)
	}
	if f.To == nil || f.From != nil {
		t.Errorf("From = %v, To = %v; want nil, set", f.From, f.To)
	}
}

func TestDocumentJSON(t *testing.T) {
	ctx := context.Background()
	store := rawlogstest.New()

	doc, err := store.Create(ctx, rawlogs.CreateCommand{
		CaptureLogID: uuid.New(),
		CaptureType:  tribunals.Docket,
		TribunalCode: "TRT3",
		Degree:       tribunals.FirstInstance,
		Request:      json.RawMessage(`{"capture_type":"docket","tribunal_code":"TRT3"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	var body map[string]any
	json.Unmarshal(b, &body)

	if body["payload_available"] != false {
		t.Errorf("payload_available = %v, want false", body["payload_available"])
	}
	req, ok := body["request"].(map[string]any)
	if !ok || req["tribunal_code"] != "TRT3" {
		t.Errorf("request = %v, want decoded request", body["request"])
	}
	if _, ok := body["raw_payload"]; ok {
		t.Error("raw payload leaked into document JSON")
	}
}

func TestCompletedIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := rawlogstest.New()
	logID := uuid.New()

	doc, err := store.Create(ctx, rawlogs.CreateCommand{CaptureLogID: logID, CaptureType: tribunals.Hearings})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Create(ctx, rawlogs.CreateCommand{CaptureLogID: logID}); !errors.Is(err, rawlogs.ErrDuplicate) {
		t.Errorf("second Create = %v, want ErrDuplicate", err)
	}

	result := &captures.Result{Totals: captures.Totals{Expected: 2, Captured: 2, Persisted: 2}}
	if err := store.Complete(ctx, doc.ID, rawlogs.Outcome{Payload: json.RawMessage(`{"type":"hearings"}`), Result: result}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := store.Fail(ctx, doc.ID, rawlogs.Outcome{Error: &rawlogs.ErrorDetail{Message: "late"}}); !errors.Is(err, rawlogs.ErrImmutable) {
		t.Errorf("Fail after complete = %v, want ErrImmutable", err)
	}
	if err := store.Complete(ctx, doc.ID, rawlogs.Outcome{}); !errors.Is(err, rawlogs.ErrImmutable) {
		t.Errorf("Complete twice = %v, want ErrImmutable", err)
	}

	if err := store.AttachReprocessing(ctx, doc.ID, rawlogs.Reprocessing{ID: "r1", Result: result}); err != nil {
		t.Fatalf("AttachReprocessing: %v", err)
	}

	got, err := store.FindByCaptureLog(ctx, logID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != rawlogs.StatusCompleted || got.ErrorDetail != nil || len(got.Reprocessing) != 1 {
		t.Errorf("document = %+v, want completed with one reprocessing entry", got)
	}
}

func TestFailKeepsEarlierPayload(t *testing.T) {
	ctx := context.Background()
	store := rawlogstest.New()

	doc, _ := store.Create(ctx, rawlogs.CreateCommand{CaptureLogID: uuid.New(), CaptureType: tribunals.Docket})
	store.Fail(ctx, doc.ID, rawlogs.Outcome{Payload: json.RawMessage(`{"type":"docket","pages":[]}`)})
	store.Fail(ctx, doc.ID, rawlogs.Outcome{Error: &rawlogs.ErrorDetail{Code: "session_expired", Message: "expired"}})

	got, _ := store.Find(ctx, doc.ID)
	if !got.PayloadAvailable() {
		t.Error("payload dropped by a later failure without payload")
	}
	if got.ErrorDetail == nil || got.ErrorDetail.Code != "session_expired" {
		t.Errorf("ErrorDetail = %+v", got.ErrorDetail)
	}
}

func TestListOmitsPayloadAndSummarize(t *testing.T) {
	ctx := context.Background()
	store := rawlogstest.New()

	seed := func(tribunal string, typ tribunals.CaptureType, fail bool, totals captures.Totals) {
		doc, err := store.Create(ctx, rawlogs.CreateCommand{CaptureLogID: uuid.New(), CaptureType: typ, TribunalCode: tribunal})
		if err != nil {
			t.Fatal(err)
		}
		out := rawlogs.Outcome{
			Payload: json.RawMessage(`{"type":"` + string(typ) + `"}`),
			Result:  &captures.Result{Totals: totals},
		}
		if fail {
			store.Fail(ctx, doc.ID, out)
			return
		}
		store.Complete(ctx, doc.ID, out)
	}

	seed("TRT3", tribunals.Docket, false, captures.Totals{Expected: 10, Captured: 10, Persisted: 9})
	seed("TRT3", tribunals.Docket, true, captures.Totals{Expected: 10, Captured: 4, Persisted: 4})
	seed("TRT2", tribunals.Hearings, false, captures.Totals{Expected: 3, Captured: 3, Persisted: 3})

	page, err := store.List(ctx, pagination.PageRequest{Page: 1, PageSize: 10}, rawlogs.Filters{TribunalCode: ptr("TRT3")})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}
	for _, d := range page.Data {
		if d.RawPayload != nil {
			t.Error("list returned a raw payload")
		}
	}

	summary, err := store.Summarize(ctx, rawlogs.Filters{})
	if err != nil {
		t.Fatal(err)
	}

	want := []rawlogs.Summary{
		{TribunalCode: "TRT2", CaptureType: tribunals.Hearings, Runs: 1, WithPayload: 1, Expected: 3, Captured: 3, Persisted: 3},
		{TribunalCode: "TRT3", CaptureType: tribunals.Docket, Runs: 2, Failed: 1, WithPayload: 2, Expected: 20, Captured: 14, Persisted: 13},
	}
	if !reflect.DeepEqual(summary, want) {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{rawlogs.ErrNotFound, 404},
		{rawlogs.ErrDuplicate, 409},
		{rawlogs.ErrImmutable, 409},
		{errors.New("other"), 500},
	}
	for _, tt := range tests {
		if got := rawlogs.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
