package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yigit/machzor/internal/app/models/dto"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/students?"+rawQuery, nil)
	return c
}

func TestPageFromQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"no parameters", "", 1, 20},
		{"explicit window", "page=3&size=50", 3, 50},
		{"zero page", "page=0", 1, 20},
		{"negative page", "page=-4", 1, 20},
		{"zero size", "size=0", 1, 20},
		{"size above cap", "size=500", 1, 20},
		{"size at cap", "size=100", 1, 100},
		{"non-numeric page", "page=abc", 1, 20},
		{"non-numeric size", "size=lots", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PageFromQuery(queryContext(t, tt.query))
			assert.Equal(t, tt.wantPage, got.Page, "query %q", tt.query)
			assert.Equal(t, tt.wantSize, got.Size, "query %q", tt.query)
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	tests := []struct {
		name string
		req  PageRequest
		want uint64
	}{
		{"first page", PageRequest{Page: 1, Size: 20}, 0},
		{"second page", PageRequest{Page: 2, Size: 20}, 20},
		{"deep page", PageRequest{Page: 3, Size: 50}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Offset())
			assert.Equal(t, tt.req.Size, tt.req.Limit())
		})
	}
}

func TestPageRequestInfo(t *testing.T) {
	tests := []struct {
		name       string
		req        PageRequest
		totalItems int64
		want       dto.PaginationInfo
	}{
		{
			"exact pages",
			PageRequest{Page: 1, Size: 20}, 40,
			dto.PaginationInfo{CurrentPage: 1, TotalPages: 2, PageSize: 20, TotalItems: 40},
		},
		{
			"partial last page",
			PageRequest{Page: 1, Size: 20}, 41,
			dto.PaginationInfo{CurrentPage: 1, TotalPages: 3, PageSize: 20, TotalItems: 41},
		},
		{
			"empty first page still one page",
			PageRequest{Page: 1, Size: 20}, 0,
			dto.PaginationInfo{CurrentPage: 1, TotalPages: 1, PageSize: 20, TotalItems: 0},
		},
		{
			"page beyond the end clamps",
			PageRequest{Page: 9, Size: 20}, 41,
			dto.PaginationInfo{CurrentPage: 3, TotalPages: 3, PageSize: 20, TotalItems: 41},
		},
		{
			"single item",
			PageRequest{Page: 1, Size: 20}, 1,
			dto.PaginationInfo{CurrentPage: 1, TotalPages: 1, PageSize: 20, TotalItems: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Info(tt.totalItems))
		})
	}
}
