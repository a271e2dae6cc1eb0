package engine

import (
	"sync"
	"time"
)

// Operation names an engine entry point.
type Operation string

const (
	OpSyncUsers        Operation = "sync_users"
	OpSyncFriendships  Operation = "sync_friendships"
	OpSyncAll          Operation = "sync_all"
	OpRepair           Operation = "repair_friendships"
	OpValidateEdges    Operation = "validate_edges"
	OpValidateOnline   Operation = "validate_online"
	OpValidateGroups   Operation = "validate_groups"
	OpValidateInteract Operation = "validate_interactions"
)

// BatchResult is the outcome of a sync or repair batch.
type BatchResult struct {
	RunID     string        `json:"run_id"`
	Operation Operation     `json:"operation"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped,omitempty"`
	Failures  []ItemFailure `json:"failures"`
	Duration  time.Duration `json:"duration_ns"`
}

// ItemFailure records one isolated per-item failure.
type ItemFailure struct {
	ItemID  string    `json:"item_id"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// OK reports whether every attempted item succeeded.
func (r *BatchResult) OK() bool {
	return r.Failed == 0 && r.Attempted == r.Succeeded
}

// batch accumulates a BatchResult from concurrent workers.
type batch struct {
	mu    sync.Mutex
	res   *BatchResult
	start time.Time
}

func newBatch(runID string, op Operation) *batch {
	return &batch{
		res:   &BatchResult{RunID: runID, Operation: op, Failures: []ItemFailure{}},
		start: time.Now(),
	}
}

func (b *batch) attempt() {
	b.mu.Lock()
	b.res.Attempted++
	b.mu.Unlock()
}

func (b *batch) succeed() {
	b.mu.Lock()
	b.res.Succeeded++
	b.mu.Unlock()
}

func (b *batch) fail(itemID string, code ErrorCode, err error) {
	b.mu.Lock()
	b.res.Failed++
	b.res.Failures = append(b.res.Failures, ItemFailure{ItemID: itemID, Code: code, Message: err.Error()})
	b.mu.Unlock()
}

func (b *batch) skip() {
	b.mu.Lock()
	b.res.Skipped++
	b.mu.Unlock()
}

func (b *batch) finish() *BatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.res.Duration = time.Since(b.start)
	return b.res
}
