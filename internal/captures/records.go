package captures

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Document download states.
const (
	DocumentPending  = "pending"
	DocumentCaptured = "captured"
	DocumentFailed   = "failed"
)

// DocketEntry is one process in an attorney's docket.
type DocketEntry struct {
	TribunalCode  string           `json:"tribunal_code"`
	Degree        tribunals.Degree `json:"degree"`
	LawyerID      uuid.UUID        `json:"lawyer_id"`
	ExternalID    string           `json:"external_id"`
	ProcessNumber string           `json:"process_number"`
	Class         string           `json:"class"`
	Court         string           `json:"court"`
	Plaintiff     string           `json:"plaintiff"`
	Defendant     string           `json:"defendant"`
	Confidential  bool             `json:"confidential"`
	FiledAt       *time.Time       `json:"filed_at"`
	ArchivedAt    *time.Time       `json:"archived_at"`
}

// Hearing is one scheduled hearing.
type Hearing struct {
	TribunalCode      string           `json:"tribunal_code"`
	Degree            tribunals.Degree `json:"degree"`
	LawyerID          uuid.UUID        `json:"lawyer_id"`
	ExternalID        string           `json:"external_id"`
	ProcessExternalID string           `json:"process_external_id"`
	ProcessNumber     string           `json:"process_number"`
	StartsAt          time.Time        `json:"starts_at"`
	EndsAt            *time.Time       `json:"ends_at"`
	Status            string           `json:"status"`
	Room              string           `json:"room"`
	Kind              string           `json:"kind"`
	Virtual           bool             `json:"virtual"`
	Court             string           `json:"court"`
}

// PendingFiling is a notice awaiting the attorney's response.
type PendingFiling struct {
	TribunalCode      string           `json:"tribunal_code"`
	Degree            tribunals.Degree `json:"degree"`
	LawyerID          uuid.UUID        `json:"lawyer_id"`
	ExternalID        string           `json:"external_id"`
	ProcessExternalID string           `json:"process_external_id"`
	ProcessNumber     string           `json:"process_number"`
	DeadlineFilter    DeadlineFilter   `json:"deadline_filter"`
	DocumentID        int64            `json:"document_id"`
	NoticeCreatedAt   *time.Time       `json:"notice_created_at"`
	AcknowledgedAt    *time.Time       `json:"acknowledged_at"`
	DeadlineAt        *time.Time       `json:"deadline_at"`
	Overdue           bool             `json:"overdue"`
	DocumentKey       *string          `json:"document_key"`
	DocumentStatus    *string          `json:"document_status"`
}

// TimelineItem is one movement or document in a process timeline.
type TimelineItem struct {
	TribunalCode   string           `json:"tribunal_code"`
	Degree         tribunals.Degree `json:"degree"`
	ProcessID      string           `json:"process_id"`
	ExternalID     string           `json:"external_id"`
	Title          string           `json:"title"`
	Kind           string           `json:"kind"`
	OccurredAt     *time.Time       `json:"occurred_at"`
	IsDocument     bool             `json:"is_document"`
	DocumentKey    *string          `json:"document_key"`
	ContentType    *string          `json:"content_type"`
	SizeBytes      *int64           `json:"size_bytes"`
	PageCount      *int             `json:"page_count"`
	DownloadStatus *string          `json:"download_status"`
}

type processWire struct {
	ID           int64  `json:"id"`
	Number       string `json:"number"`
	Class        string `json:"class"`
	Court        string `json:"court"`
	Plaintiff    string `json:"plaintiff"`
	Defendant    string `json:"defendant"`
	Confidential bool   `json:"confidential"`
	FiledAt      string `json:"filed_at"`
	ArchivedAt   string `json:"archived_at"`
}

type hearingWire struct {
	ID       int64  `json:"id"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Status   string `json:"status"`
	Room     struct {
		Name string `json:"name"`
	} `json:"room"`
	Kind struct {
		Description string `json:"description"`
		Virtual     bool   `json:"virtual"`
	} `json:"kind"`
	Process struct {
		ID     int64  `json:"id"`
		Number string `json:"number"`
		Court  struct {
			Description string `json:"description"`
		} `json:"court"`
	} `json:"process"`
}

type pendingWire struct {
	processWire
	DocumentID      int64  `json:"document_id"`
	NoticeCreatedAt string `json:"notice_created_at"`
	AcknowledgedAt  string `json:"acknowledged_at"`
	DeadlineAt      string `json:"deadline_at"`
	Overdue         bool   `json:"overdue"`
}

type timelineWire struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Date     string `json:"date"`
	Document bool   `json:"document"`
}

// NormalizeDocketEntry converts one verbatim docket item.
func NormalizeDocketEntry(raw json.RawMessage, req Request) (DocketEntry, error) {
	var w processWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return DocketEntry{}, fmt.Errorf("decode docket item: %w", err)
	}
	if w.ID == 0 {
		return DocketEntry{}, fmt.Errorf("docket item without id")
	}

	filed, err := parseTime(w.FiledAt)
	if err != nil {
		return DocketEntry{}, fmt.Errorf("filed_at: %w", err)
	}
	archived, err := parseTime(w.ArchivedAt)
	if err != nil {
		return DocketEntry{}, fmt.Errorf("archived_at: %w", err)
	}

	return DocketEntry{
		TribunalCode:  req.TribunalCode,
		Degree:        req.Degree,
		LawyerID:      req.LawyerID,
		ExternalID:    strconv.FormatInt(w.ID, 10),
		ProcessNumber: w.Number,
		Class:         w.Class,
		Court:         w.Court,
		Plaintiff:     w.Plaintiff,
		Defendant:     w.Defendant,
		Confidential:  w.Confidential,
		FiledAt:       filed,
		ArchivedAt:    archived,
	}, nil
}

// NormalizeHearing converts one verbatim hearing item.
func NormalizeHearing(raw json.RawMessage, req Request) (Hearing, error) {
	var w hearingWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Hearing{}, fmt.Errorf("decode hearing: %w", err)
	}
	if w.ID == 0 {
		return Hearing{}, fmt.Errorf("hearing without id")
	}

	starts, err := parseTime(w.StartsAt)
	if err != nil {
		return Hearing{}, fmt.Errorf("starts_at: %w", err)
	}
	if starts == nil {
		return Hearing{}, fmt.Errorf("hearing %d without starts_at", w.ID)
	}
	ends, err := parseTime(w.EndsAt)
	if err != nil {
		return Hearing{}, fmt.Errorf("ends_at: %w", err)
	}

	h := Hearing{
		TribunalCode:  req.TribunalCode,
		Degree:        req.Degree,
		LawyerID:      req.LawyerID,
		ExternalID:    strconv.FormatInt(w.ID, 10),
		ProcessNumber: w.Process.Number,
		StartsAt:      *starts,
		EndsAt:        ends,
		Status:        w.Status,
		Room:          w.Room.Name,
		Kind:          w.Kind.Description,
		Virtual:       w.Kind.Virtual,
		Court:         w.Process.Court.Description,
	}
	if w.Process.ID != 0 {
		h.ProcessExternalID = strconv.FormatInt(w.Process.ID, 10)
	}
	return h, nil
}

// NormalizePendingFiling converts one verbatim pending item fetched under filter.
func NormalizePendingFiling(raw json.RawMessage, req Request, filter DeadlineFilter) (PendingFiling, error) {
	var w pendingWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return PendingFiling{}, fmt.Errorf("decode pending filing: %w", err)
	}
	if w.ID == 0 {
		return PendingFiling{}, fmt.Errorf("pending filing without process id")
	}

	created, err := parseTime(w.NoticeCreatedAt)
	if err != nil {
		return PendingFiling{}, fmt.Errorf("notice_created_at: %w", err)
	}
	acked, err := parseTime(w.AcknowledgedAt)
	if err != nil {
		return PendingFiling{}, fmt.Errorf("acknowledged_at: %w", err)
	}
	deadline, err := parseTime(w.DeadlineAt)
	if err != nil {
		return PendingFiling{}, fmt.Errorf("deadline_at: %w", err)
	}

	process := strconv.FormatInt(w.ID, 10)
	return PendingFiling{
		TribunalCode:      req.TribunalCode,
		Degree:            req.Degree,
		LawyerID:          req.LawyerID,
		ExternalID:        process + "-" + strconv.FormatInt(w.DocumentID, 10),
		ProcessExternalID: process,
		ProcessNumber:     w.Number,
		DeadlineFilter:    filter,
		DocumentID:        w.DocumentID,
		NoticeCreatedAt:   created,
		AcknowledgedAt:    acked,
		DeadlineAt:        deadline,
		Overdue:           w.Overdue,
	}, nil
}

// NormalizeTimelineItem converts one verbatim timeline entry of processID.
func NormalizeTimelineItem(raw json.RawMessage, req Request, processID string) (TimelineItem, error) {
	var w timelineWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return TimelineItem{}, fmt.Errorf("decode timeline item: %w", err)
	}
	if w.ID == 0 {
		return TimelineItem{}, fmt.Errorf("timeline item without id")
	}

	occurred, err := parseTime(w.Date)
	if err != nil {
		return TimelineItem{}, fmt.Errorf("date: %w", err)
	}

	return TimelineItem{
		TribunalCode: req.TribunalCode,
		Degree:       req.Degree,
		ProcessID:    processID,
		ExternalID:   strconv.FormatInt(w.ID, 10),
		Title:        w.Title,
		Kind:         w.Kind,
		OccurredAt:   occurred,
		IsDocument:   w.Document,
	}, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts the timestamp forms portals emit. Empty input is nil.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}
