package core

import "math"

const maxInt = int(^uint(0) >> 1)

// Pagination is an offset/limit window over a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPagination clamps limit to [1,maxLimit] and page to [1,n] where n is the last page whose window
// still fits an int; a non-positive limit falls back to defaultLimit.
func NewPagination(page, limit, defaultLimit, maxLimit int) Pagination {
	if page < 1 {
		page = 1
	}
	if maxLimit < 1 {
		maxLimit = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if lastPage := (maxInt-limit)/limit + 1; page > lastPage {
		page = lastPage
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns ceil(total/limit), never less than 1.
func (p Pagination) TotalPages(total int) int {
	if total <= 0 || p.Limit <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(p.Limit)))
}

// DBOrdering is one ORDER BY term; Field is a logical field name that each repository maps to its own column.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}
