package models

type Pagination struct {
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Total       int64 `json:"total"`
}

// PageRequest is a 1-based page with a positive limit.
type PageRequest struct {
	Page  int64
	Limit int64
}

func NewPageRequest(page, limit, defaultLimit int64) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

func (p PageRequest) Skip() int64 {
	return (p.Page - 1) * p.Limit
}

func (p PageRequest) Paginate(total int64) Pagination {
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	return Pagination{TotalPages: pages, CurrentPage: p.Page, Total: total}
}
