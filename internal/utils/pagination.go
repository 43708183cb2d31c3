// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import "strconv"

// Default and upper bound for list page sizes.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage bounds number to >= 1 and size to 1..MaxPageSize; a size <= 0
// becomes DefaultPageSize.
func NewPage(number, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Page{Number: max(number, 1), Size: min(size, MaxPageSize)}
}

// ParsePage reads a Page from query string values. Missing or malformed
// values take the defaults.
func ParsePage(number, size string) Page {
	return NewPage(AtoiDefault(number, 1), AtoiDefault(size, DefaultPageSize))
}

// Offset is the number of rows before the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages is the number of pages needed for total rows.
func (p Page) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
