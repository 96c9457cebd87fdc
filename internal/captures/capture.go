// Package captures fetches tribunal data through an authenticated session,
// normalizes it, and upserts it by external identifier. Every executor can
// also replay a stored raw payload without contacting the tribunal.
package captures

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Executor captures one data domain.
type Executor interface {
	Type() tribunals.CaptureType
	// Capture paginates through sess, persists every normalized record, and
	// returns the merged raw payload on the result. A failed run may still
	// return a result carrying the payload fetched before the failure.
	Capture(ctx context.Context, sess session.Session, req Request) (*Result, error)
	// Replay runs normalization and persistence over a stored payload.
	// Documents are not downloaded again.
	Replay(ctx context.Context, req Request, payload Payload) (*Result, error)
}

// Request identifies what a run captures and for whom.
type Request struct {
	Type         tribunals.CaptureType `json:"capture_type"`
	TribunalCode string                `json:"tribunal_code"`
	Degree       tribunals.Degree      `json:"degree"`
	LawyerID     uuid.UUID             `json:"lawyer_id"`
	CredentialID uuid.UUID             `json:"credential_id"`
	Cursor       Cursor                `json:"cursor"`
	Params       Params                `json:"params"`
}

// Params holds domain filters. Each executor reads only its own fields.
type Params struct {
	// From and To bound the hearing window, formatted YYYY-MM-DD.
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	HearingStatus string `json:"hearing_status,omitempty"`

	DeadlineFilter    DeadlineFilter   `json:"deadline_filter,omitempty"`
	DeadlineFilters   []DeadlineFilter `json:"deadline_filters,omitempty"`
	DownloadDocuments bool             `json:"download_documents,omitempty"`

	ProcessID string `json:"process_id,omitempty"`
}

// DeadlineFilter selects pending filings by deadline state.
type DeadlineFilter string

const (
	NoDeadline DeadlineFilter = "no_deadline"
	InDeadline DeadlineFilter = "in_deadline"
)

var deadlineOrder = []DeadlineFilter{NoDeadline, InDeadline}

// ResolveDeadlineFilters merges the list and single filter fields, drops
// unknown and duplicate values, and orders the result. With nothing
// selected it falls back to NoDeadline.
func (p Params) ResolveDeadlineFilters() []DeadlineFilter {
	selected := append(slices.Clone(p.DeadlineFilters), p.DeadlineFilter)

	var out []DeadlineFilter
	for _, f := range deadlineOrder {
		if slices.Contains(selected, f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []DeadlineFilter{NoDeadline}
	}
	return out
}

const dateLayout = "2006-01-02"

// HearingWindow returns the validated hearing window. Missing bounds default
// to today and one year from today.
func (p Params) HearingWindow(now time.Time) (from, to string, err error) {
	from, to = p.From, p.To
	if from == "" {
		from = now.Format(dateLayout)
	}
	if to == "" {
		to = now.AddDate(1, 0, 0).Format(dateLayout)
	}

	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return "", "", fmt.Errorf("%w: from %q is not YYYY-MM-DD", ErrInvalidRequest, from)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return "", "", fmt.Errorf("%w: to %q is not YYYY-MM-DD", ErrInvalidRequest, to)
	}
	if start.After(end) {
		return "", "", fmt.Errorf("%w: from %s is after to %s", ErrInvalidRequest, from, to)
	}
	return from, to, nil
}

// Result summarizes one capture or replay. It is stored as the processed
// result of the raw log; the payload is stored separately.
type Result struct {
	Pages      PageTotals      `json:"pages" bson:"pages"`
	Totals     Totals          `json:"totals" bson:"totals"`
	Documents  Documents       `json:"documents" bson:"documents"`
	ItemErrors []ItemError     `json:"item_errors,omitempty" bson:"itemErrors,omitempty"`
	Payload    json.RawMessage `json:"-" bson:"-"`
}

// PageTotals compares the pages the tribunal declared with those fetched.
type PageTotals struct {
	Expected int `json:"expected" bson:"expected"`
	Fetched  int `json:"fetched" bson:"fetched"`
}

// Totals compares declared, received, and persisted record counts.
type Totals struct {
	Expected  int `json:"expected" bson:"expected"`
	Captured  int `json:"captured" bson:"captured"`
	Persisted int `json:"persisted" bson:"persisted"`
}

// Documents counts binary downloads.
type Documents struct {
	Expected int `json:"expected" bson:"expected"`
	Captured int `json:"captured" bson:"captured"`
	Failed   int `json:"failed" bson:"failed"`
}

// Item error kinds.
const (
	KindNormalize = "normalize"
	KindPersist   = "persist"
	KindDownload  = "download"
	KindUpload    = "upload"
)

// ItemError is a per-record failure that does not fail the run.
type ItemError struct {
	Kind       string `json:"kind" bson:"kind"`
	ExternalID string `json:"external_id,omitempty" bson:"externalId,omitempty"`
	Message    string `json:"message" bson:"message"`
}

func (r *Result) addError(kind, externalID string, err error) {
	r.ItemErrors = append(r.ItemErrors, ItemError{Kind: kind, ExternalID: externalID, Message: err.Error()})
}
