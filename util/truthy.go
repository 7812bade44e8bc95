package util

import "strings"

// Truthy reports whether s spells a positive boolean, the way
// environment variables commonly do.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
