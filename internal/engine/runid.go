package engine

import "github.com/google/uuid"

// RunIDGenerator produces the correlation ID stamped on every log line and
// result of one engine call.
type RunIDGenerator interface {
	Generate() string
}

// RunIDFunc adapts a plain function to RunIDGenerator.
type RunIDFunc func() string

// Generate calls f.
func (f RunIDFunc) Generate() string { return f() }

// NewRunID returns a fresh UUIDv7 string. Run IDs from one process sort
// by start time.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
