package pagination

import "math"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page/limit pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the shape of a paginated response.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// Normalize clamps page and limit into their allowed ranges.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset converts the normalized page into a row offset.
func (p Params) Offset() int {
	normalized := p.Normalize()
	return (normalized.Page - 1) * normalized.Limit
}

// NewMeta computes response metadata for a total row count.
func NewMeta(params Params, total int64) Meta {
	normalized := params.Normalize()
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(normalized.Limit)))
	}
	return Meta{
		Page:       normalized.Page,
		Limit:      normalized.Limit,
		TotalItems: total,
		TotalPages: pages,
	}
}
