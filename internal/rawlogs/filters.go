package rawlogs

import (
	"net/url"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JaimeStill/tribunal/pkg/query"
)

// Filters narrows raw log listings. Nil fields are ignored; From and To
// bound createdAt as [From, To).
type Filters struct {
	CaptureType  *string    `json:"capture_type,omitempty"`
	Status       *string    `json:"status,omitempty"`
	TribunalCode *string    `json:"tribunal_code,omitempty"`
	Degree       *string    `json:"degree,omitempty"`
	LawyerID     *string    `json:"lawyer_id,omitempty"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
}

// Document builds the store filter. search matches tribunal code or the
// failure message, case-insensitively.
func (f Filters) Document(search *string) bson.D {
	var d bson.D

	add := func(field string, v *string) {
		if v != nil {
			d = append(d, bson.E{Key: field, Value: *v})
		}
	}
	add("captureType", f.CaptureType)
	add("status", f.Status)
	add("tribunalCode", f.TribunalCode)
	add("degree", f.Degree)
	add("lawyerId", f.LawyerID)

	if f.From != nil || f.To != nil {
		window := bson.D{}
		if f.From != nil {
			window = append(window, bson.E{Key: "$gte", Value: *f.From})
		}
		if f.To != nil {
			window = append(window, bson.E{Key: "$lt", Value: *f.To})
		}
		d = append(d, bson.E{Key: "createdAt", Value: window})
	}

	if search != nil && *search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(*search), Options: "i"}
		d = append(d, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "tribunalCode", Value: re}},
			bson.D{{Key: "errorDetail.message", Value: re}},
		}})
	}

	if d == nil {
		d = bson.D{}
	}
	return d
}

// Matches reports whether doc satisfies every set filter.
func (f Filters) Matches(doc *Document) bool {
	switch {
	case f.CaptureType != nil && string(doc.CaptureType) != *f.CaptureType:
		return false
	case f.Status != nil && string(doc.Status) != *f.Status:
		return false
	case f.TribunalCode != nil && doc.TribunalCode != *f.TribunalCode:
		return false
	case f.Degree != nil && string(doc.Degree) != *f.Degree:
		return false
	case f.LawyerID != nil && doc.LawyerID != *f.LawyerID:
		return false
	case f.From != nil && doc.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !doc.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	f.CaptureType = optional(values, "capture_type")
	f.Status = optional(values, "status")
	f.TribunalCode = optional(values, "tribunal_code")
	f.Degree = optional(values, "degree")
	f.LawyerID = optional(values, "lawyer_id")
	f.From = parseDate(values.Get("from"))
	f.To = parseDate(values.Get("to"))

	return f
}

var sortFields = map[string]string{
	"CreatedAt":    "createdAt",
	"UpdatedAt":    "updatedAt",
	"TribunalCode": "tribunalCode",
	"CaptureType":  "captureType",
	"Status":       "status",
}

// sortDocument maps requested sort fields onto stored field names,
// defaulting to newest first. Unknown fields are dropped.
func sortDocument(fields []query.SortField) bson.D {
	var d bson.D
	for _, f := range fields {
		name, ok := sortFields[f.Field]
		if !ok {
			continue
		}
		dir := 1
		if f.Descending {
			dir = -1
		}
		d = append(d, bson.E{Key: name, Value: dir})
	}
	if len(d) == 0 {
		d = bson.D{{Key: "createdAt", Value: -1}}
	}
	return d
}

func optional(values url.Values, key string) *string {
	if v := values.Get(key); v != "" {
		return &v
	}
	return nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
