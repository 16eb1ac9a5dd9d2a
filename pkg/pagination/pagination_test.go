package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/conduitworks/conduit/pkg/pagination"
	"github.com/conduitworks/conduit/pkg/query"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"zero values", 0, 0, 1, 20},
		{"negative page", -5, 10, 1, 10},
		{"valid values", 3, 50, 3, 50},
		{"page size over max", 1, 500, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pagination.PageRequest{Page: tt.page, PageSize: tt.pageSize}
			req.Normalize(testConfig())

			if req.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", req.Page, tt.wantPage)
			}
			if req.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", req.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "invoice")
	values.Set("sort", "-createdAt")

	req := pagination.PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("page = %d size = %d, want 2 and 10", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "invoice" {
		t.Errorf("Search = %v, want invoice", req.Search)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "createdAt" || !req.Sort[0].Descending {
		t.Errorf("Sort = %v, want -createdAt", req.Sort)
	}
}

func TestPageRequestFromQueryDefaults(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{}, testConfig())

	if req.Page != 1 || req.PageSize != 20 {
		t.Errorf("page = %d size = %d, want normalized defaults", req.Page, req.PageSize)
	}
	if req.Search != nil {
		t.Errorf("Search = %v, want nil", req.Search)
	}
}

func TestSortFieldsUnmarshalString(t *testing.T) {
	var fields pagination.SortFields
	if err := json.Unmarshal([]byte(`"name,-createdAt"`), &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []query.SortField{
		{Field: "name"},
		{Field: "createdAt", Descending: true},
	}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %+v, want %+v", i, fields[i], want[i])
		}
	}
}

func TestSortFieldsUnmarshalArray(t *testing.T) {
	var fields pagination.SortFields
	data := `[{"Field":"stage","Descending":true}]`
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(fields) != 1 || fields[0].Field != "stage" || !fields[0].Descending {
		t.Errorf("fields = %v", fields)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		pageSize       int
		wantTotalPages int
	}{
		{"exact division", 100, 20, 5},
		{"with remainder", 101, 20, 6},
		{"empty result", 0, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{}, tt.total, 1, tt.pageSize)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
		})
	}
}

func TestNewPageResultNilData(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)
	if result.Data == nil {
		t.Error("Data should be an empty slice, not nil")
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if cfg.DefaultPageSize != 20 || cfg.MaxPageSize != 100 {
		t.Errorf("defaults = %d/%d, want 20/100", cfg.DefaultPageSize, cfg.MaxPageSize)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("Finalize accepted default_page_size above max_page_size")
	}
}
