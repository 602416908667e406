package cli

import (
	"strings"
)

// looksLikeRepoID reports whether s has the HuggingFace org/name shape.
func looksLikeRepoID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && len(parts[1]) > 0 && !strings.ContainsAny(s, " \t\n")
}
