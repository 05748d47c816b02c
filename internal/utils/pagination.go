// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"math"
	"strconv"
)

// ParseIntDefault parses s as an int. An empty string yields def; a
// non-numeric value is reported as an error instead of being silently
// replaced.
//
// Example:
//
//	n, _ := utils.ParseIntDefault("", 10)   // 10
//	n, _ = utils.ParseIntDefault("42", 10)  // 42
//	_, err := utils.ParseIntDefault("x", 5) // err != nil
func ParseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// TotalPages returns ceil(total/pageSize). A non-positive pageSize or an
// empty collection yields 0.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// Offset returns the number of rows to skip for a 1-based page. A page whose
// offset does not fit in an int saturates at math.MaxInt.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}
