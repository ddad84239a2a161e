package models

const MaxPageLimit = 50

// PageRequest is a 1-based page and a page size.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page to >= 1 and limit to [1, MaxPageLimit],
// using defaultLimit when limit is not positive.
func NewPageRequest(page, limit, defaultLimit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the metadata returned with a page of results.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

func NewPagination(p PageRequest, total int64) Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		HasNext:     p.Page < totalPages,
		HasPrev:     p.Page > 1,
	}
}

// ReviewPagination adds the review total to Pagination.
type ReviewPagination struct {
	Pagination
	TotalReviews int64 `json:"total_reviews"`
}

// StorePagination adds the store total to Pagination.
type StorePagination struct {
	Pagination
	TotalStores int64 `json:"total_stores"`
}
