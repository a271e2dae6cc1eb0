package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/graphsync/internal/engine"
	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/primary"
	"github.com/roach88/graphsync/internal/social"
	"github.com/roach88/graphsync/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a stopped clock and a fixed run ID.
type Harness struct {
	engine *engine.Engine

	// divergences from the latest validate_edges or audit step, consumed
	// by repair.
	divergences []social.Divergence
	validated   bool
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in fresh in-memory databases for isolation.
//
// Execution flow:
// 1. Create fresh in-memory primary and graph stores
// 2. Seed both stores from the scenario fixture
// 3. Execute steps, checking expect clauses
// 4. Evaluate assertions against the graph store
// 5. Capture the final graph state
func Run(scenario *Scenario) (*Result, error) {
	ps, err := primary.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory primary store: %w", err)
	}
	defer ps.Close()

	gs, err := graph.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory graph store: %w", err)
	}
	defer gs.Close()

	start := testutil.DefaultEpoch
	if scenario.Now != nil {
		start = *scenario.Now
	}
	clock := testutil.NewFixedClock(start)
	runIDs := testutil.NewFixedRunIDGenerator(scenario.RunID)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	h := &Harness{
		engine: engine.New(ps, gs,
			engine.WithClock(clock.Now),
			engine.WithRunIDGenerator(runIDs),
			engine.WithLogger(logger),
			// One worker keeps failure order, and so the golden files, stable.
			engine.WithWorkers(1),
		),
	}

	ctx := context.Background()

	if err := scenario.Fixture.Seed(ctx, ps, gs, clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to seed fixture: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
		result.AddStep(outcome)
		for _, msg := range checkExpect(i, outcome, step.Expect) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, gs, scenario.Assertions) {
		result.AddError(msg)
	}

	state, err := captureGraph(ctx, gs)
	if err != nil {
		return nil, fmt.Errorf("failed to capture graph state: %w", err)
	}
	result.Graph = state

	return result, nil
}

// executeStep runs one engine operation. Engine errors become part of the
// outcome; only harness failures are returned.
func (h *Harness) executeStep(ctx context.Context, step Step) (StepOutcome, error) {
	outcome := StepOutcome{Op: step.Op}

	var (
		batch *engine.BatchResult
		err   error
	)
	switch step.Op {
	case OpSyncUsers:
		batch, err = h.engine.SyncAllUsers(ctx)
	case OpSyncFriendships:
		batch, err = h.engine.SyncAllFriendships(ctx)
	case OpSyncAll:
		batch, err = h.engine.SyncAllData(ctx)
	case OpRepair:
		if !h.validated {
			if h.divergences, err = h.engine.ValidateDataConsistency(ctx); err != nil {
				break
			}
		}
		batch, err = h.engine.RepairFriendships(ctx, h.divergences)
		h.divergences, h.validated = nil, false
	case OpValidateEdges:
		var divs []social.Divergence
		divs, err = h.engine.ValidateDataConsistency(ctx)
		if err == nil {
			h.divergences, h.validated = divs, true
			outcome.Divergences = divs
			outcome.Consistent = boolPtr(len(divs) == 0)
		}
	case OpValidateOnline:
		outcome.Consistent, err = consistent(h.engine.ValidateOnlineStatus(ctx))
	case OpValidateGroups:
		outcome.Consistent, err = consistent(h.engine.ValidateFriendGroups(ctx))
	case OpValidateInteractions:
		outcome.Consistent, err = consistent(h.engine.ValidateInteractions(ctx))
	case OpAudit:
		var report *engine.AuditReport
		report, err = h.engine.Audit(ctx)
		if err == nil {
			h.divergences, h.validated = report.Divergences, true
			outcome.Divergences = report.Divergences
			outcome.Consistent = boolPtr(report.Consistent())
		}
	default:
		return outcome, fmt.Errorf("unknown op %q", step.Op)
	}

	if batch != nil {
		outcome.Attempted = batch.Attempted
		outcome.Succeeded = batch.Succeeded
		outcome.Failed = batch.Failed
		outcome.Skipped = batch.Skipped
		for _, f := range batch.Failures {
			outcome.Failures = append(outcome.Failures, FailureOutcome{Item: f.ItemID, Code: string(f.Code)})
		}
	}
	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			// Not an engine error: cancellation or a harness wiring problem.
			return outcome, err
		}
		outcome.ErrorCode = string(code)
	}
	return outcome, nil
}

// checkExpect compares an outcome against its expect clause.
func checkExpect(index int, got StepOutcome, want *ExpectClause) []string {
	var errs []string
	prefix := fmt.Sprintf("steps[%d] (%s)", index, got.Op)

	if want == nil {
		if got.ErrorCode != "" {
			errs = append(errs, fmt.Sprintf("%s: unexpected error %s", prefix, got.ErrorCode))
		}
		return errs
	}

	if want.Error != got.ErrorCode {
		errs = append(errs, fmt.Sprintf("%s: expected error %q, got %q", prefix, want.Error, got.ErrorCode))
	}

	checkInt := func(field string, want *int, got int) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Sprintf("%s: expected %s=%d, got %d", prefix, field, *want, got))
		}
	}
	checkInt("attempted", want.Attempted, got.Attempted)
	checkInt("succeeded", want.Succeeded, got.Succeeded)
	checkInt("failed", want.Failed, got.Failed)
	checkInt("skipped", want.Skipped, got.Skipped)
	checkInt("divergences", want.Divergences, len(got.Divergences))

	if want.Consistent != nil {
		if got.Consistent == nil {
			errs = append(errs, fmt.Sprintf("%s: expected consistent=%t, step reports no consistency", prefix, *want.Consistent))
		} else if *got.Consistent != *want.Consistent {
			errs = append(errs, fmt.Sprintf("%s: expected consistent=%t, got %t", prefix, *want.Consistent, *got.Consistent))
		}
	}
	return errs
}

func captureGraph(ctx context.Context, gs *graph.Store) (GraphState, error) {
	state := GraphState{Nodes: []string{}, Edges: []EdgeState{}}

	nodes, err := gs.ListUsers(ctx)
	if err != nil {
		return state, err
	}
	for _, n := range nodes {
		state.Nodes = append(state.Nodes, n.ID)
	}

	edges, err := gs.ListEdges(ctx)
	if err != nil {
		return state, err
	}
	for _, e := range edges {
		state.Edges = append(state.Edges, EdgeState{
			Lo:               e.Owner,
			Hi:               e.Friend,
			Status:           e.Status,
			InteractionCount: e.InteractionCount,
		})
	}
	return state, nil
}

func consistent(ok bool, err error) (*bool, error) {
	if err != nil {
		return nil, err
	}
	return boolPtr(ok), nil
}

func boolPtr(b bool) *bool {
	return &b
}
