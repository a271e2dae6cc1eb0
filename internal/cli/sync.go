package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphsync/internal/engine"
)

// Sync targets.
const (
	syncUsers       = "users"
	syncFriendships = "friendships"
	syncAll         = "all"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Yes bool // confirm the destructive rebuild
}

// batchReport renders an engine batch result.
type batchReport struct {
	*engine.BatchResult
}

func (r batchReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (run %s): attempted=%d succeeded=%d failed=%d",
		r.Operation, r.RunID, r.Attempted, r.Succeeded, r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, " skipped=%d", r.Skipped)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n  ✗ %s [%s] %s", f.ItemID, f.Code, f.Message)
	}
	return b.String()
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <users|friendships|all>",
		Short: "Copy primary store data into the graph store",
		Long: `Copy primary store data into the graph store.

  users        upsert one node per user document
  friendships  upsert one edge per embedded friendship record
  all          clear the graph store, then rebuild nodes and edges from
               the neighbor lists (requires --yes)

users and friendships isolate per-item failures; all stops at the first.

Exit codes:
  0 - All items synced
  1 - Some items failed, or the operation aborted
  2 - Command error (invalid target, config, database)`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{syncUsers, syncFriendships, syncAll},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm clearing the graph store for sync all")

	return cmd
}

func runSync(opts *SyncOptions, target string, cmd *cobra.Command) error {
	var op func(*engine.Engine, context.Context) (*engine.BatchResult, error)
	switch target {
	case syncUsers:
		op = (*engine.Engine).SyncAllUsers
	case syncFriendships:
		op = (*engine.Engine).SyncAllFriendships
	case syncAll:
		if !opts.Yes {
			return NewExitError(ExitCommandError, "sync all clears the graph store; pass --yes to confirm")
		}
		op = (*engine.Engine).SyncAllData
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown sync target %q: must be one of users, friendships, all", target))
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := op(s.engine, ctx)
	if err != nil {
		if res != nil && s.out.Format != "json" {
			fmt.Fprintln(s.out.Writer, batchReport{res})
		}
		return engineFailure(s.out, "sync "+target, err)
	}

	if res.Failed > 0 {
		msg := fmt.Sprintf("%d item(s) failed", res.Failed)
		if err := s.out.Failure(ErrCodeItems, msg, batchReport{res}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return s.out.Success(batchReport{res})
}
