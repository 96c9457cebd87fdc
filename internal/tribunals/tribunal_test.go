package tribunals_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

func TestParseCaptureType(t *testing.T) {
	for _, ct := range tribunals.CaptureTypes {
		got, err := tribunals.ParseCaptureType(string(ct))
		if err != nil || got != ct {
			t.Errorf("ParseCaptureType(%q) = %q, %v", ct, got, err)
		}
	}

	if _, err := tribunals.ParseCaptureType("payroll"); !errors.Is(err, tribunals.ErrUnknownCaptureType) {
		t.Errorf("expected ErrUnknownCaptureType, got %v", err)
	}
}

func TestDegreeValid(t *testing.T) {
	tests := map[tribunals.Degree]bool{
		tribunals.FirstInstance:  true,
		tribunals.SecondInstance: true,
		tribunals.Superior:       true,
		"third":                  false,
	}
	for d, want := range tests {
		if got := d.Valid(); got != want {
			t.Errorf("%q.Valid() = %v, want %v", d, got, want)
		}
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tribunals.ErrCredentialNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", tribunals.ErrPortalNotFound), http.StatusNotFound},
		{tribunals.ErrCredentialInactive, http.StatusConflict},
		{tribunals.ErrUnknownCaptureType, http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tribunals.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
