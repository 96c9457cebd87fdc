package captures

import (
	"cmp"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Payload is the merged raw payload of one run. The concrete type is fixed
// by the capture type: *DocketPayload, *HearingsPayload, *PendingPayload or
// *TimelinePayload. Page and item bytes are kept verbatim.
type Payload interface {
	CaptureType() tribunals.CaptureType
	// Expect recomputes declared and received counts from the payload alone.
	Expect() (Expectation, error)
}

// Expectation is what a payload says the run should have produced.
type Expectation struct {
	Pages     PageTotals
	Items     int
	Received  int
	Documents int
}

// DocketPayload holds every docket page of a run.
type DocketPayload struct {
	Type      tribunals.CaptureType `json:"type"`
	StartPage int                   `json:"start_page"`
	PageSize  int                   `json:"page_size,omitempty"`
	Pages     []json.RawMessage     `json:"pages"`
}

func (p *DocketPayload) CaptureType() tribunals.CaptureType { return tribunals.Docket }

func (p *DocketPayload) Expect() (Expectation, error) {
	return expectPages(p.Pages, p.StartPage, p.PageSize)
}

// HearingsPayload holds every hearings page of a run and its date window.
type HearingsPayload struct {
	Type      tribunals.CaptureType `json:"type"`
	From      string                `json:"from"`
	To        string                `json:"to"`
	StartPage int                   `json:"start_page"`
	PageSize  int                   `json:"page_size,omitempty"`
	Pages     []json.RawMessage     `json:"pages"`
}

func (p *HearingsPayload) CaptureType() tribunals.CaptureType { return tribunals.Hearings }

func (p *HearingsPayload) Expect() (Expectation, error) {
	return expectPages(p.Pages, p.StartPage, p.PageSize)
}

// PendingPayload holds one page group per deadline filter.
type PendingPayload struct {
	Type              tribunals.CaptureType `json:"type"`
	DownloadDocuments bool                  `json:"download_documents"`
	Groups            []PendingGroup        `json:"groups"`
}

// PendingGroup is the pages fetched for one deadline filter.
type PendingGroup struct {
	Filter DeadlineFilter    `json:"filter"`
	Pages  []json.RawMessage `json:"pages"`
}

func (p *PendingPayload) CaptureType() tribunals.CaptureType { return tribunals.Pending }

func (p *PendingPayload) Expect() (Expectation, error) {
	var total Expectation
	for _, g := range p.Groups {
		e, err := expectPages(g.Pages, 1, 0)
		if err != nil {
			return Expectation{}, err
		}
		total.Pages.Expected += e.Pages.Expected
		total.Pages.Fetched += e.Pages.Fetched
		total.Items += e.Items
		total.Received += e.Received

		if !p.DownloadDocuments {
			continue
		}
		for _, raw := range g.Pages {
			page, err := DecodePage(raw)
			if err != nil {
				return Expectation{}, err
			}
			for _, item := range page.Items {
				var w struct {
					DocumentID int64 `json:"document_id"`
				}
				if json.Unmarshal(item, &w) == nil && w.DocumentID > 0 {
					total.Documents++
				}
			}
		}
	}
	return total, nil
}

// TimelinePayload holds the verbatim timeline of one process.
type TimelinePayload struct {
	Type      tribunals.CaptureType `json:"type"`
	ProcessID string                `json:"process_id"`
	Items     json.RawMessage       `json:"items"`
}

func (p *TimelinePayload) CaptureType() tribunals.CaptureType { return tribunals.Timeline }

func (p *TimelinePayload) Expect() (Expectation, error) {
	items, err := p.entries()
	if err != nil {
		return Expectation{}, err
	}

	e := Expectation{Items: len(items), Received: len(items)}
	for _, item := range items {
		var w struct {
			Document bool `json:"document"`
		}
		if json.Unmarshal(item, &w) == nil && w.Document {
			e.Documents++
		}
	}
	return e, nil
}

func (p *TimelinePayload) entries() ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(p.Items, &items); err != nil {
		return nil, shapeError("timeline", "items is not an array", p.Items)
	}
	return items, nil
}

// Encode serializes a payload with its type tag.
func Encode(p Payload) (json.RawMessage, error) {
	switch v := p.(type) {
	case *DocketPayload:
		v.Type = tribunals.Docket
	case *HearingsPayload:
		v.Type = tribunals.Hearings
	case *PendingPayload:
		v.Type = tribunals.Pending
	case *TimelinePayload:
		v.Type = tribunals.Timeline
	default:
		return nil, fmt.Errorf("encode payload: unsupported type %T", p)
	}
	return json.Marshal(p)
}

// Decode parses a stored payload as the variant for captureType. A type tag
// that disagrees with captureType, or a missing required field, yields a
// *ShapeError.
func Decode(captureType tribunals.CaptureType, raw json.RawMessage) (Payload, error) {
	var tag struct {
		Type tribunals.CaptureType `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, shapeError("payload", err.Error(), raw)
	}
	if tag.Type != "" && tag.Type != captureType {
		return nil, shapeError("payload", fmt.Sprintf("tagged %q, expected %q", tag.Type, captureType), raw)
	}

	var p Payload
	switch captureType {
	case tribunals.Docket:
		p = &DocketPayload{}
	case tribunals.Hearings:
		p = &HearingsPayload{}
	case tribunals.Pending:
		p = &PendingPayload{}
	case tribunals.Timeline:
		p = &TimelinePayload{}
	default:
		return nil, fmt.Errorf("%w: %q", tribunals.ErrUnknownCaptureType, captureType)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, shapeError("payload", err.Error(), raw)
	}
	if err := validate(p); err != nil {
		return nil, shapeError("payload", err.Error(), raw)
	}
	return p, nil
}

func validate(p Payload) error {
	switch v := p.(type) {
	case *DocketPayload:
		if v.Pages == nil {
			return fmt.Errorf("missing pages")
		}
	case *HearingsPayload:
		if v.Pages == nil {
			return fmt.Errorf("missing pages")
		}
	case *PendingPayload:
		if v.Groups == nil {
			return fmt.Errorf("missing groups")
		}
	case *TimelinePayload:
		if v.ProcessID == "" {
			return fmt.Errorf("missing process_id")
		}
		if len(v.Items) == 0 {
			return fmt.Errorf("missing items")
		}
	}
	return nil
}

// expectPages derives counts from verbatim pages. The first page carries
// the declared totals; pageSize is the requested size, used when the
// portal does not report one.
func expectPages(pages []json.RawMessage, startPage, pageSize int) (Expectation, error) {
	var e Expectation
	e.Pages.Fetched = len(pages)

	for i, raw := range pages {
		page, err := DecodePage(raw)
		if err != nil {
			return Expectation{}, err
		}
		if i == 0 {
			skipped := max(startPage, 1) - 1
			e.Pages.Expected = max(page.PageCount-skipped, len(pages))
			e.Items = max(page.Total-skipped*cmp.Or(page.PageSize, pageSize), 0)
		}
		e.Received += len(page.Items)
	}

	// portals that omit totals declare exactly what they returned
	if e.Items == 0 {
		e.Items = e.Received
	}
	return e, nil
}
