// Package utils holds small helpers shared by the HTTP and service layers
// for page-based listing of messages and audit records.
package utils

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage bounds a 1-based page number and a page size to
// [1, MaxPageSize]. A non-positive size becomes DefaultPageSize.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PageBounds converts a page request into an SQL offset and limit.
func PageBounds(page, pageSize int) (offset, limit int) {
	page, pageSize = ClampPage(page, pageSize)
	return (page - 1) * pageSize, pageSize
}

// TotalPages is the number of pages needed for total rows.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
