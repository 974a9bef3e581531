package domain

import "testing"

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		total     int64
		wantPages int
	}{
		{"exact fit", 1, 20, 40, 2},
		{"partial last page", 2, 20, 41, 3},
		{"empty result", 1, 20, 0, 0},
		{"single page", 1, 50, 7, 1},
		{"zero limit", 1, 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if p.Page != tt.page || p.Limit != tt.limit || p.TotalItems != tt.total {
				t.Errorf("pagination = %+v", p)
			}
		})
	}
}
