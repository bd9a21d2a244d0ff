package backends

import "strings"

// isDiskFullError reports whether err looks like ENOSPC. String
// matching is deliberate: by the time the error surfaces it may have
// been wrapped by bufio or the OS layer with only its text intact.
func isDiskFullError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no space left") ||
		strings.Contains(s, "enospc") ||
		strings.Contains(s, "disk full") ||
		strings.Contains(s, "out of disk space")
}
