package misc

import "strings"

// IsNotFoundError reports whether err looks like a missing-file condition.
// Used for errors coming back from clipboard helpers and syslog dials that
// do not wrap fs.ErrNotExist.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "does not exist") ||
		strings.Contains(errStr, "no such file")
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
