package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/JaimeStill/tribunal/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
		wantSearch   bool
		wantSort     int
	}{
		{"defaults", "", 1, 20, false, 0},
		{"explicit", "page=3&page_size=50", 3, 50, false, 0},
		{"clamped", "page=-1&page_size=500", 1, 100, false, 0},
		{"search and sort", "search=TRT&sort=-startedAt,tribunalCode", 1, 20, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, testConfig())

			if req.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", req.Page, tt.wantPage)
			}
			if req.PageSize != tt.wantPageSize {
				t.Errorf("page_size = %d, want %d", req.PageSize, tt.wantPageSize)
			}
			if (req.Search != nil) != tt.wantSearch {
				t.Errorf("search = %v, want present=%v", req.Search, tt.wantSearch)
			}
			if len(req.Sort) != tt.wantSort {
				t.Errorf("sort = %v, want %d fields", req.Sort, tt.wantSort)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 4, PageSize: 25}
	if got := req.Offset(); got != 75 {
		t.Errorf("Offset() = %d, want 75", got)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantPages int
	}{
		{"empty", 0, 20, 1},
		{"exact", 150, 50, 3},
		{"remainder", 151, 50, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pagination.NewPageResult[string](nil, tt.total, 1, tt.pageSize)
			if res.TotalPages != tt.wantPages {
				t.Errorf("total_pages = %d, want %d", res.TotalPages, tt.wantPages)
			}
			if res.Data == nil {
				t.Error("data should be an empty slice, not nil")
			}
		})
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	var req pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"page":1,"sort":"-createdAt,tribunalCode"}`), &req); err != nil {
		t.Fatalf("unmarshal string sort: %v", err)
	}
	if len(req.Sort) != 2 || !req.Sort[0].Descending {
		t.Errorf("sort = %+v", req.Sort)
	}

	if err := json.Unmarshal([]byte(`{"sort":[{"Field":"id","Descending":false}]}`), &req); err != nil {
		t.Fatalf("unmarshal array sort: %v", err)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "id" {
		t.Errorf("sort = %+v", req.Sort)
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}
}
