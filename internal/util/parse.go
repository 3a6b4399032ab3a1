package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination holds the page/limit pair parsed from query params.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePagination reads page and limit query params, clamping to sane
// bounds. Pages are 1-based.
func ParsePagination(c *gin.Context) Pagination {
	page := ParseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := ParseInt(c.Query("limit"), defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Pagination{Page: page, Limit: limit}
}

// PageMeta builds the pagination envelope returned by list endpoints.
func PageMeta(p Pagination, total int64) gin.H {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return gin.H{
		"page":        p.Page,
		"limit":       p.Limit,
		"total":       total,
		"total_pages": totalPages,
		"has_more":    p.Page < totalPages,
	}
}
