package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultSize is the page size used when none is given
	DefaultSize = 20
	// MaxSize caps the page size a caller may request
	MaxSize = 100
	// DefaultPage is the first page index
	DefaultPage = 0
)

// PageSpec describes which slice of an ordered result set to return
type PageSpec struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// NewPageSpec clamps page and size into valid bounds
func NewPageSpec(page, size int) PageSpec {
	if page < 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return PageSpec{Page: page, Size: size}
}

// Offset returns the row offset for this page
func (p PageSpec) Offset() int {
	return p.Page * p.Size
}

// ParseParams extracts page and size query parameters with defaults
func ParseParams(c *gin.Context) PageSpec {
	page := DefaultPage
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed >= 0 {
			page = parsed
		}
	}

	size := DefaultSize
	if sizeStr := c.Query("size"); sizeStr != "" {
		if parsed, err := strconv.Atoi(sizeStr); err == nil && parsed > 0 {
			size = parsed
		}
	}

	return NewPageSpec(page, size)
}
