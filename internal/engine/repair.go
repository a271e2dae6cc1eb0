package engine

import (
	"context"
	"fmt"

	"github.com/roach88/graphsync/internal/social"
)

// RepairFriendships backfills the graph store with the edges an audit
// reported as missing from it. Each edge is re-projected from the current
// primary record, so a repaired edge carries the same metadata an
// incremental sync would write.
//
// Edges present only in the graph store are counted as skipped: the graph
// store contract has no delete, and removing data is left to an operator.
// A divergence whose friendship no longer exists in the primary store
// fails with ErrCodeStale. Failures are isolated per edge.
func (e *Engine) RepairFriendships(ctx context.Context, divergences []social.Divergence) (*BatchResult, error) {
	b := newBatch(e.runIDs.Generate(), OpRepair)
	log := e.opLogger(b.res)

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return e.abort(log, b, newSyncError(ErrCodeReadFailed, OpRepair, "", err))
	}

	// First owner record per unordered pair.
	type source struct {
		owner      string
		friendship social.Friendship
	}
	byPair := make(map[[2]string]source)
	for _, u := range users {
		for _, f := range u.Friendships {
			if f.Friend == "" || f.Friend == u.ID {
				continue
			}
			key := pairKey(u.ID, f.Friend)
			if _, ok := byPair[key]; !ok {
				byPair[key] = source{owner: u.ID, friendship: f}
			}
		}
	}

	type repairJob struct{ user, friend string }
	var jobs []repairJob
	seen := make(map[[2]string]bool)
	for _, d := range divergences {
		for _, v := range d.MissingInSecondary {
			key := pairKey(d.UserID, v.FriendID)
			if seen[key] {
				continue
			}
			seen[key] = true
			jobs = append(jobs, repairJob{user: d.UserID, friend: v.FriendID})
		}
		for _, v := range d.MissingInPrimary {
			b.skip()
			log.Warn("stray graph edge left in place", "user", d.UserID, "friend", v.FriendID)
		}
	}
	log.Info("repairing friendships", "backfill", len(jobs))

	cerr := e.runIsolated(ctx, len(jobs), func(ctx context.Context, i int) {
		job := jobs[i]
		key := edgeKey(job.user, job.friend)
		b.attempt()

		src, ok := byPair[pairKey(job.user, job.friend)]
		if !ok {
			e.itemFailed(log, b, key, ErrCodeStale, fmt.Errorf("no primary friendship between %s and %s", job.user, job.friend))
			return
		}
		edge, err := e.projector.Friendship(src.owner, src.friendship)
		if err != nil {
			e.itemFailed(log, b, key, ErrCodeProjectFailed, err)
			return
		}
		if err := e.graph.UpsertFriendship(ctx, edge.Owner, edge.Friend, edge.EdgeProps); err != nil {
			e.itemFailed(log, b, key, ErrCodeWriteFailed, err)
			return
		}
		b.succeed()
		log.Debug("friendship backfilled", "owner", edge.Owner, "friend", edge.Friend)
	})

	return e.complete(log, b, cerr)
}
