package utils

import (
	"fmt"
	"strings"
)

// TruncateForLog returns s on one line, whitespace runs collapsed, cut to limit
// runes. A cut value ends with the number of runes left out.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return fmt.Sprintf("%s... (+%d)", string(runes[:limit]), len(runes)-limit)
}
