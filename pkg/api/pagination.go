package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageRequest carries the page window a client asked for.
type PageRequest struct {
	Page     int64
	PageSize int64
}

// ParsePagination reads page and pageSize from the query string, clamping
// out-of-range values instead of rejecting them.
func ParsePagination(c *gin.Context) PageRequest {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("pageSize", "20"), 10, 64)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return PageRequest{Page: page, PageSize: pageSize}
}

// PageResponse is the list envelope every collection endpoint returns.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse wraps one page of results. TotalPages never drops below
// one, so an empty result still renders as page 1 of 1.
func NewPageResponse[T any](data []T, page, pageSize, totalItems int64) PageResponse[T] {
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
