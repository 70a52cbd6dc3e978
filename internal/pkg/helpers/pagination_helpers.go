package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yigit/machzor/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1 // Pages are 1-based
)

// PageRequest is a clamped, 1-based paging window taken from the query string.
type PageRequest struct {
	Page int
	Size int
}

// PageFromQuery reads the page and size query parameters. Anything missing,
// malformed or out of range falls back to the defaults.
func PageFromQuery(c *gin.Context) PageRequest {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}

	return PageRequest{Page: page, Size: size}
}

// Offset returns the SQL offset for the window.
func (p PageRequest) Offset() uint64 {
	return uint64((p.Page - 1) * p.Size)
}

// Limit returns the SQL limit for the window.
func (p PageRequest) Limit() int {
	return p.Size
}

// Info builds the paging metadata returned alongside list items.
func (p PageRequest) Info(totalItems int64) dto.PaginationInfo {
	totalPages := 0
	if totalItems > 0 {
		totalPages = int((totalItems + int64(p.Size) - 1) / int64(p.Size))
	} else if p.Page == 1 {
		// An empty first page still counts as one page.
		totalPages = 1
	}

	currentPage := p.Page
	if totalPages > 0 && currentPage > totalPages {
		currentPage = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		PageSize:    p.Size,
		TotalItems:  totalItems,
	}
}
