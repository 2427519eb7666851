// Package utils holds small parsing helpers shared by the HTTP handlers.
package utils

import (
	"strconv"
	"strings"
)

// BoundedInt parses s as a base-10 int and clamps it into [lo, hi]. Blank or
// unparsable input yields def, which is clamped the same way. A hi below lo
// leaves the upper end open.
func BoundedInt(s string, def, lo, hi int) int {
	n := def
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		n = v
	}
	if n < lo {
		return lo
	}
	if hi >= lo && n > hi {
		return hi
	}
	return n
}
