package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphsync/internal/engine"
)

// repairReport is the outcome of a repair run.
type repairReport struct {
	DivergentUsers int                 `json:"divergent_users"`
	Batch          *engine.BatchResult `json:"batch"`
}

func (r repairReport) String() string {
	if r.DivergentUsers == 0 {
		return "No friendship divergence; nothing to repair"
	}
	return fmt.Sprintf("%d divergent user(s)\n%s", r.DivergentUsers, batchReport{r.Batch})
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Backfill friendships missing from the graph store",
		Long: `Audit friendship sets, then write every edge the primary store has
and the graph store lacks. Edges present only in the graph store are
reported as skipped and left in place; use "sync all" to drop them.

Exit codes:
  0 - Nothing to repair, or every missing edge was written
  1 - Some edges could not be written, or the audit failed
  2 - Command error (config, database)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(rootOpts, cmd)
		},
	}
	return cmd
}

func runRepair(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	divergences, err := s.engine.ValidateDataConsistency(ctx)
	if err != nil {
		return engineFailure(s.out, "repair", err)
	}
	report := repairReport{DivergentUsers: len(divergences)}
	if len(divergences) == 0 {
		return s.out.Success(report)
	}

	report.Batch, err = s.engine.RepairFriendships(ctx, divergences)
	if err != nil {
		return engineFailure(s.out, "repair", err)
	}
	if report.Batch.Failed > 0 {
		msg := fmt.Sprintf("%d edge(s) could not be repaired", report.Batch.Failed)
		if err := s.out.Failure(ErrCodeItems, msg, report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return s.out.Success(report)
}
