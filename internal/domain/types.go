package domain

// Pagination is the meta block attached to paged list responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, TotalItems: total}
	if limit > 0 {
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return p
}

// Response standardizes API responses for list endpoints.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}
