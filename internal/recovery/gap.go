// Package recovery diagnoses capture attempts from their stored raw payload
// and replays normalization against it without contacting the tribunal.
package recovery

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Gap kinds.
const (
	GapMissingPages     = "missing_pages"
	GapMissingItems     = "missing_items"
	GapUnpersisted      = "unpersisted_items"
	GapMissingDocuments = "missing_documents"
	GapFailedDocuments  = "failed_documents"
	GapShapeMismatch    = "payload_shape_mismatch"
)

// Gap is one discrepancy between what the tribunal declared, what it
// returned, and what was stored.
type Gap struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// ProcessInfo identifies the attempt an analysis describes.
type ProcessInfo struct {
	RawLogID     string                `json:"raw_log_id"`
	CaptureLogID string                `json:"capture_log_id"`
	CaptureType  tribunals.CaptureType `json:"capture_type"`
	TribunalCode string                `json:"tribunal_code"`
	Degree       tribunals.Degree      `json:"degree"`
	LawyerID     string                `json:"lawyer_id"`
	Status       rawlogs.Status        `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
}

// Analysis compares counts recomputed from the payload with the processed
// result. It is derived on demand and never stored.
type Analysis struct {
	ProcessInfo      ProcessInfo          `json:"process_info"`
	Totals           captures.Totals      `json:"totals"`
	Pages            captures.PageTotals  `json:"pages"`
	Documents        captures.Documents   `json:"documents"`
	Gaps             []Gap                `json:"gaps"`
	PayloadAvailable bool                 `json:"payload_available"`
	OriginalError    *rawlogs.ErrorDetail `json:"original_error,omitempty"`
}

func processInfo(doc *rawlogs.Document) ProcessInfo {
	return ProcessInfo{
		RawLogID:     doc.ID,
		CaptureLogID: doc.CaptureLogID,
		CaptureType:  doc.CaptureType,
		TribunalCode: doc.TribunalCode,
		Degree:       doc.Degree,
		LawyerID:     doc.LawyerID,
		Status:       doc.Status,
		CreatedAt:    doc.CreatedAt,
	}
}

// analyze is pure: the same document always yields the same analysis.
func analyze(doc *rawlogs.Document) Analysis {
	a := Analysis{
		ProcessInfo:      processInfo(doc),
		Gaps:             []Gap{},
		PayloadAvailable: doc.PayloadAvailable(),
		OriginalError:    doc.ErrorDetail,
	}

	var processed captures.Result
	if doc.ResultProcessed != nil {
		processed = *doc.ResultProcessed
	}
	a.Totals.Captured = processed.Totals.Captured
	a.Totals.Persisted = processed.Totals.Persisted
	a.Documents.Captured = processed.Documents.Captured
	a.Documents.Failed = processed.Documents.Failed

	if !a.PayloadAvailable {
		return a
	}

	exp, err := expectation(doc)
	if err != nil {
		a.Gaps = append(a.Gaps, Gap{Kind: GapShapeMismatch, Description: err.Error()})
		return a
	}

	a.Totals.Expected = exp.Items
	a.Pages = exp.Pages
	a.Documents.Expected = exp.Documents

	a.Gaps = diff(exp, processed)
	return a
}

func expectation(doc *rawlogs.Document) (captures.Expectation, error) {
	payload, err := captures.Decode(doc.CaptureType, doc.Payload())
	if err != nil {
		return captures.Expectation{}, err
	}
	return payload.Expect()
}

// diff lists every positive discrepancy, sorted by kind.
func diff(exp captures.Expectation, processed captures.Result) []Gap {
	gaps := []Gap{}

	add := func(kind string, count int, format string, args ...any) {
		if count > 0 {
			gaps = append(gaps, Gap{Kind: kind, Count: count, Description: fmt.Sprintf(format, args...)})
		}
	}

	add(GapMissingPages, exp.Pages.Expected-exp.Pages.Fetched,
		"tribunal declared %d pages, payload holds %d", exp.Pages.Expected, exp.Pages.Fetched)
	add(GapMissingItems, exp.Items-exp.Received,
		"tribunal declared %d items, returned %d", exp.Items, exp.Received)
	add(GapUnpersisted, exp.Received-processed.Totals.Persisted,
		"received %d items, persisted %d", exp.Received, processed.Totals.Persisted)

	missing := exp.Documents - processed.Documents.Captured - processed.Documents.Failed
	add(GapMissingDocuments, missing,
		"payload lists %d documents, %d captured and %d failed",
		exp.Documents, processed.Documents.Captured, processed.Documents.Failed)
	add(GapFailedDocuments, processed.Documents.Failed,
		"%d document downloads failed", processed.Documents.Failed)

	sortGaps(gaps)
	return gaps
}

func sortGaps(gaps []Gap) {
	slices.SortFunc(gaps, func(a, b Gap) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Description, b.Description))
	})
}

// TribunalSummary is the aggregate view of one tribunal and capture type.
type TribunalSummary struct {
	rawlogs.Summary
	Gaps []Gap `json:"gaps"`
}

func summarize(s rawlogs.Summary) TribunalSummary {
	gaps := []Gap{}
	add := func(kind string, count int, format string, args ...any) {
		if count > 0 {
			gaps = append(gaps, Gap{Kind: kind, Count: count, Description: fmt.Sprintf(format, args...)})
		}
	}

	add(GapMissingItems, s.Expected-s.Captured,
		"%d items declared, %d received across %d runs", s.Expected, s.Captured, s.Runs)
	add(GapUnpersisted, s.Captured-s.Persisted,
		"%d items received, %d persisted", s.Captured, s.Persisted)
	add(GapMissingDocuments, s.DocumentsExpected-s.DocumentsCaptured-s.DocumentsFailed,
		"%d documents listed, %d captured and %d failed", s.DocumentsExpected, s.DocumentsCaptured, s.DocumentsFailed)
	add(GapFailedDocuments, s.DocumentsFailed,
		"%d document downloads failed", s.DocumentsFailed)

	sortGaps(gaps)
	return TribunalSummary{Summary: s, Gaps: gaps}
}
