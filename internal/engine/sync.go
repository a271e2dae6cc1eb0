package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/graphsync/internal/social"
)

// SyncAllUsers projects every primary user onto a node and upserts it.
// Per-user failures are logged and recorded; the batch continues.
// Only a failure to enumerate users is returned as an error.
func (e *Engine) SyncAllUsers(ctx context.Context) (*BatchResult, error) {
	b := newBatch(e.runIDs.Generate(), OpSyncUsers)
	log := e.opLogger(b.res)

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return e.abort(log, b, newSyncError(ErrCodeReadFailed, OpSyncUsers, "", err))
	}
	log.Info("syncing users", "count", len(users))

	cerr := e.runIsolated(ctx, len(users), func(ctx context.Context, i int) {
		rec := users[i]
		b.attempt()

		node, err := e.projector.User(rec)
		if err != nil {
			e.itemFailed(log, b, userKey(rec), ErrCodeProjectFailed, err)
			return
		}
		if err := e.graph.UpsertUser(ctx, node); err != nil {
			e.itemFailed(log, b, userKey(rec), ErrCodeWriteFailed, err)
			return
		}
		b.succeed()
		log.Debug("user synced", "user", rec.ID, "username", rec.Username)
	})

	return e.complete(log, b, cerr)
}

// friendshipJob is one (owner, embedded friendship) pair.
type friendshipJob struct {
	owner      string
	username   string
	friendship social.Friendship
}

// SyncAllFriendships upserts one edge per embedded friendship record,
// carrying the record's status, interaction count and last interaction
// (each defaulted when absent). A pair embedded by both endpoints is
// written once, from the first owner's record. Per-edge failures are
// isolated.
func (e *Engine) SyncAllFriendships(ctx context.Context) (*BatchResult, error) {
	b := newBatch(e.runIDs.Generate(), OpSyncFriendships)
	log := e.opLogger(b.res)

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return e.abort(log, b, newSyncError(ErrCodeReadFailed, OpSyncFriendships, "", err))
	}

	// One job per unordered pair. The first owner in enumeration order
	// supplies the edge metadata, the same record RepairFriendships uses;
	// later records of the pair are skipped. Records that cannot form a
	// pair keep their own job and fail projection.
	var jobs []friendshipJob
	claimed := make(map[[2]string]string)
	for _, u := range users {
		for _, f := range u.Friendships {
			if f.Friend != "" && f.Friend != u.ID {
				key := pairKey(u.ID, f.Friend)
				if first, ok := claimed[key]; ok {
					b.skip()
					log.Debug("duplicate friendship record skipped", "owner", u.ID, "friend", f.Friend, "source", first)
					continue
				}
				claimed[key] = u.ID
			}
			jobs = append(jobs, friendshipJob{owner: u.ID, username: u.Username, friendship: f})
		}
	}
	log.Info("syncing friendships", "users", len(users), "edges", len(jobs))

	cerr := e.runIsolated(ctx, len(jobs), func(ctx context.Context, i int) {
		job := jobs[i]
		key := edgeKey(job.owner, job.friendship.Friend)
		b.attempt()

		edge, err := e.projector.Friendship(job.owner, job.friendship)
		if err != nil {
			e.itemFailed(log, b, key, ErrCodeProjectFailed, err)
			return
		}
		if err := e.graph.UpsertFriendship(ctx, edge.Owner, edge.Friend, edge.EdgeProps); err != nil {
			e.itemFailed(log, b, key, ErrCodeWriteFailed, err)
			return
		}
		b.succeed()
		log.Debug("friendship synced", "owner", job.owner, "username", job.username, "friend", edge.Friend)
	})

	return e.complete(log, b, cerr)
}

// SyncAllData rebuilds the graph store from scratch: it clears it, then
// upserts every user and one default edge per neighbor ID (status
// "regular", zero interactions, current time). Historical edge metadata is
// not carried over.
//
// Users are read before the clear, so an unreadable primary store leaves
// the graph store untouched. After the clear, the first error of any kind
// aborts all remaining work and is returned.
func (e *Engine) SyncAllData(ctx context.Context) (*BatchResult, error) {
	b := newBatch(e.runIDs.Generate(), OpSyncAll)
	log := e.opLogger(b.res)

	records, err := e.primary.ListNeighbors(ctx)
	if err != nil {
		return e.abort(log, b, newSyncError(ErrCodeReadFailed, OpSyncAll, "", err))
	}

	log.Warn("clearing graph store for rebuild")
	if err := e.graph.ClearAll(ctx); err != nil {
		return e.abort(log, b, newSyncError(ErrCodeClearFailed, OpSyncAll, "", err))
	}

	err = e.runFailFast(ctx, len(records), func(ctx context.Context, i int) error {
		rec := records[i].User
		b.attempt()

		node, err := e.projector.User(rec)
		if err != nil {
			b.fail(userKey(rec), ErrCodeProjectFailed, err)
			return newSyncError(ErrCodeProjectFailed, OpSyncAll, userKey(rec), err)
		}
		if err := e.graph.UpsertUser(ctx, node); err != nil {
			b.fail(userKey(rec), ErrCodeWriteFailed, err)
			return newSyncError(ErrCodeWriteFailed, OpSyncAll, userKey(rec), err)
		}
		b.succeed()
		return nil
	})
	if err != nil {
		return e.abort(log, b, err)
	}

	type neighborJob struct{ owner, friend string }
	var jobs []neighborJob
	for _, r := range records {
		for _, f := range r.Friends {
			jobs = append(jobs, neighborJob{owner: r.User.ID, friend: f})
		}
	}
	log.Info("rebuild users written", "users", len(records), "edges", len(jobs))

	err = e.runFailFast(ctx, len(jobs), func(ctx context.Context, i int) error {
		job := jobs[i]
		key := edgeKey(job.owner, job.friend)
		b.attempt()

		edge, err := e.projector.Neighbor(job.owner, job.friend)
		if err != nil {
			b.fail(key, ErrCodeProjectFailed, err)
			return newSyncError(ErrCodeProjectFailed, OpSyncAll, key, err)
		}
		if err := e.graph.UpsertFriendship(ctx, edge.Owner, edge.Friend, edge.EdgeProps); err != nil {
			b.fail(key, ErrCodeWriteFailed, err)
			return newSyncError(ErrCodeWriteFailed, OpSyncAll, key, err)
		}
		b.succeed()
		return nil
	})
	if err != nil {
		return e.abort(log, b, err)
	}

	return e.complete(log, b, nil)
}

func (e *Engine) opLogger(r *BatchResult) *slog.Logger {
	return e.logger.With("run_id", r.RunID, "op", string(r.Operation))
}

func (e *Engine) itemFailed(log *slog.Logger, b *batch, itemID string, code ErrorCode, err error) {
	b.fail(itemID, code, err)
	log.Error("sync item failed", "item", itemID, "code", string(code), "error", err)
}

// abort finishes b and returns it with err. The partial result is
// returned so callers can see how far the batch got.
func (e *Engine) abort(log *slog.Logger, b *batch, err error) (*BatchResult, error) {
	res := b.finish()
	e.metrics.observeBatch(res)
	log.Error("operation aborted",
		"error", err,
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
	)
	return res, err
}

// complete finishes b. cerr is the cancellation error, if any.
func (e *Engine) complete(log *slog.Logger, b *batch, cerr error) (*BatchResult, error) {
	res := b.finish()
	e.metrics.observeBatch(res)
	if cerr != nil {
		log.Warn("operation cancelled",
			"error", cerr,
			"attempted", res.Attempted,
			"succeeded", res.Succeeded,
		)
		return res, cerr
	}
	log.Info("operation complete",
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", res.Duration,
	)
	return res, nil
}

// userKey identifies a user record in logs, even when its ID is missing.
func userKey(rec social.UserRecord) string {
	if rec.ID != "" {
		return rec.ID
	}
	return fmt.Sprintf("(username=%s)", rec.Username)
}

func edgeKey(owner, friend string) string {
	return owner + "->" + friend
}
