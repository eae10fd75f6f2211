package models

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageRequest is a 1-based page window.
type PageRequest struct {
	Page  int
	Limit int
}

func NewPageRequest(page, limit, defLimit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

func NewPagination(p PageRequest, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Current: p.Page, Pages: pages, Total: total}
}

// Window slices an already ordered result set. Used by the in-memory store.
func Window[T any](items []T, p PageRequest) []T {
	off := p.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && off+p.Limit < end {
		end = off + p.Limit
	}
	return items[off:end]
}
