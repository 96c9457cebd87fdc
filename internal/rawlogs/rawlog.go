// Package rawlogs stores the verbatim payload and processed result of every
// capture attempt in the document store. A completed document is immutable
// except for appended reprocessing entries.
package rawlogs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Collection is the document store collection holding raw logs.
const Collection = "capture_raw_logs"

// Status mirrors the capture log state the raw log was last written with.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Document is one capture attempt as stored in the document store.
// Request and RawPayload hold the exact JSON bytes the capture produced,
// stored as BSON binary so tribunal keys and numbers are never reinterpreted.
type Document struct {
	ID              string                `bson:"_id" json:"id"`
	CaptureLogID    string                `bson:"captureLogId" json:"capture_log_id"`
	CaptureType     tribunals.CaptureType `bson:"captureType" json:"capture_type"`
	Status          Status                `bson:"status" json:"status"`
	TribunalCode    string                `bson:"tribunalCode" json:"tribunal_code"`
	Degree          tribunals.Degree      `bson:"degree" json:"degree"`
	LawyerID        string                `bson:"lawyerId" json:"lawyer_id"`
	CredentialID    string                `bson:"credentialId" json:"credential_id"`
	CreatedAt       time.Time             `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time             `bson:"updatedAt" json:"updated_at"`
	Request         []byte                `bson:"request,omitempty" json:"-"`
	RawPayload      []byte                `bson:"rawPayload,omitempty" json:"-"`
	ResultProcessed *captures.Result      `bson:"resultProcessed" json:"result_processed,omitempty"`
	ErrorDetail     *ErrorDetail          `bson:"errorDetail" json:"error_detail,omitempty"`
	Logs            []LogEntry            `bson:"logs" json:"logs"`
	Reprocessing    []Reprocessing        `bson:"reprocessing" json:"reprocessing"`
}

// ErrorDetail describes why an attempt failed.
type ErrorDetail struct {
	Code    string `bson:"code" json:"code"`
	Message string `bson:"message" json:"message"`
}

// LogEntry is one line of the run's narrative.
type LogEntry struct {
	At      time.Time `bson:"at" json:"at"`
	Level   string    `bson:"level" json:"level"`
	Message string    `bson:"message" json:"message"`
}

// Reprocessing records one replay of the stored payload.
type Reprocessing struct {
	ID          string           `bson:"id" json:"id"`
	At          time.Time        `bson:"at" json:"at"`
	RequestedBy string           `bson:"requestedBy" json:"requested_by"`
	Result      *captures.Result `bson:"result,omitempty" json:"result,omitempty"`
	Error       string           `bson:"error,omitempty" json:"error,omitempty"`
}

// PayloadAvailable reports whether a raw payload was stored.
func (d *Document) PayloadAvailable() bool {
	return len(d.RawPayload) > 0
}

// Payload returns the raw payload as JSON, or nil when none was stored.
func (d *Document) Payload() json.RawMessage {
	return Verbatim(d.RawPayload)
}

// RequestJSON returns the stored capture request as JSON.
func (d *Document) RequestJSON() json.RawMessage {
	return Verbatim(d.Request)
}

// CaptureRequest decodes the stored request.
func (d *Document) CaptureRequest() (captures.Request, error) {
	var req captures.Request
	raw := d.RequestJSON()
	if len(raw) == 0 {
		req.Type = d.CaptureType
		req.TribunalCode = d.TribunalCode
		req.Degree = d.Degree
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode raw log request: %w", err)
	}
	return req, nil
}

// MarshalJSON renders the stored request as JSON. The payload is
// omitted; callers fetch it explicitly.
func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	return json.Marshal(struct {
		alias
		Request          json.RawMessage `json:"request,omitempty"`
		PayloadAvailable bool            `json:"payload_available"`
	}{alias(d), d.RequestJSON(), d.PayloadAvailable()})
}

// CreateCommand opens a raw log for a capture attempt.
type CreateCommand struct {
	CaptureLogID uuid.UUID
	CaptureType  tribunals.CaptureType
	TribunalCode string
	Degree       tribunals.Degree
	LawyerID     uuid.UUID
	CredentialID uuid.UUID
	Request      json.RawMessage
}

// Outcome closes a raw log. Payload may be nil when nothing was fetched;
// an existing payload is never replaced by nil.
type Outcome struct {
	Payload json.RawMessage
	Result  *captures.Result
	Error   *ErrorDetail
	Logs    []LogEntry
}

// Verbatim copies JSON for storage. Empty input and a JSON null yield nil.
func Verbatim(data []byte) json.RawMessage {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.RawMessage(bytes.Clone(data))
}
