// Package tribunals holds the reference data the capture pipeline reads but
// never writes: attorney credentials and per-tribunal portal endpoints.
package tribunals

import (
	"fmt"

	"github.com/google/uuid"
)

// Degree is the court instance a portal serves.
type Degree string

const (
	FirstInstance  Degree = "first_instance"
	SecondInstance Degree = "second_instance"
	Superior       Degree = "superior"
)

// Valid reports whether d is a known degree.
func (d Degree) Valid() bool {
	switch d {
	case FirstInstance, SecondInstance, Superior:
		return true
	}
	return false
}

// CaptureType names the data domain a capture run collects.
type CaptureType string

const (
	Docket   CaptureType = "docket"
	Hearings CaptureType = "hearings"
	Pending  CaptureType = "pending"
	Timeline CaptureType = "timeline"
)

// CaptureTypes lists every capture type in a stable order.
var CaptureTypes = []CaptureType{Docket, Hearings, Pending, Timeline}

// Valid reports whether c is a known capture type.
func (c CaptureType) Valid() bool {
	switch c {
	case Docket, Hearings, Pending, Timeline:
		return true
	}
	return false
}

// ParseCaptureType validates s as a CaptureType.
func ParseCaptureType(s string) (CaptureType, error) {
	c := CaptureType(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCaptureType, s)
	}
	return c, nil
}

// Credential is an attorney's login for one tribunal portal. LoginSecret
// never leaves the process in JSON.
type Credential struct {
	ID           uuid.UUID `json:"id"`
	TribunalCode string    `json:"tribunal_code"`
	Degree       Degree    `json:"degree"`
	LawyerID     uuid.UUID `json:"lawyer_id"`
	Username     string    `json:"username"`
	LoginSecret  string    `json:"-"`
	Active       bool      `json:"active"`
}

// Portal is the static endpoint set of one tribunal at one degree.
type Portal struct {
	Code     string `json:"code"`
	Degree   Degree `json:"degree"`
	BaseURL  string `json:"base_url"`
	APIURL   string `json:"api_url"`
	LoginURL string `json:"login_url"`
}
