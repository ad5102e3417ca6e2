package pagination

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when the page number is missing or invalid.
	DefaultPage = 1
	// DefaultSize is the standard page size when a size is not provided.
	DefaultSize = 10
	// MaxSize caps how many rows any page query can request.
	MaxSize = 100
	// MaxPage keeps (Page-1)*Size well inside int range.
	MaxPage = math.MaxInt32
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page int
	Size int
}

// Normalize falls back to the defaults for zero or negative values and caps
// the size at MaxSize.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	return p
}

// Offset converts the page number into a row offset.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return p.Normalize().Size
}

// Parse builds Params from raw query values. Anything that is not a finite
// positive number falls back to the default for that field.
func Parse(page, size string) Params {
	return Params{Page: parsePositive(page), Size: parsePositive(size)}.Normalize()
}

func parsePositive(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil {
		if v > math.MaxInt32 {
			return 0
		}
		return v
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// Page describes a slice of a larger result set.
type Page struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage derives page metadata from normalized params and a total count.
func NewPage(p Params, total int64) Page {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = int((total + int64(n.Size) - 1) / int64(n.Size))
	}
	return Page{Page: n.Page, Size: n.Size, Total: total, TotalPages: pages}
}
