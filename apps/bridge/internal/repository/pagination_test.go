package repository

import "testing"

func TestBuildPageMeta(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		page        int
		limit       int
		totalPages  int
		hasNextPage bool
		hasPrevPage bool
	}{
		{"second page of three orders", 3, 2, 2, 2, false, true},
		{"first page of three orders", 3, 1, 2, 2, true, false},
		{"single full page", 2, 1, 2, 1, false, false},
		{"empty result", 0, 1, 20, 0, false, false},
		{"page beyond results", 0, 5, 20, 0, false, false},
		{"exact multiple", 100, 5, 20, 5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := BuildPageMeta(tt.total, tt.page, tt.limit)
			if meta.Total != tt.total || meta.Page != tt.page || meta.Limit != tt.limit {
				t.Errorf("Unexpected identity fields: %+v", meta)
			}
			if meta.TotalPages != tt.totalPages {
				t.Errorf("Expected totalPages %d, got %d", tt.totalPages, meta.TotalPages)
			}
			if meta.HasNextPage != tt.hasNextPage {
				t.Errorf("Expected hasNextPage %v, got %v", tt.hasNextPage, meta.HasNextPage)
			}
			if meta.HasPrevPage != tt.hasPrevPage {
				t.Errorf("Expected hasPrevPage %v, got %v", tt.hasPrevPage, meta.HasPrevPage)
			}
		})
	}
}
