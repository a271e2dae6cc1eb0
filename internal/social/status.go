package social

import (
	"fmt"
	"regexp"
)

// Status is an open, validated friendship status such as "pending" or
// "regular". New statuses can appear without an engine rebuild.
type Status string

// DefaultStatus is substituted when a source record carries no status.
const DefaultStatus Status = "regular"

var statusPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// Validate checks that s is a well-formed status token.
// It does not check membership in any known set.
func (s Status) Validate() error {
	if !statusPattern.MatchString(string(s)) {
		return fmt.Errorf("invalid status %q: must match %s", string(s), statusPattern)
	}
	return nil
}

// OrDefault returns s, or DefaultStatus when s is empty.
func (s Status) OrDefault() Status {
	if s == "" {
		return DefaultStatus
	}
	return s
}
