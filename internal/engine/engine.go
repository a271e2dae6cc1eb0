package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/graphsync/internal/project"
	"github.com/roach88/graphsync/internal/social"
)

// PrimaryReader is the read-only view of the primary record store.
type PrimaryReader interface {
	// ListUsers enumerates every user record with embedded relationships.
	ListUsers(ctx context.Context) ([]social.UserRecord, error)

	// ListNeighbors enumerates every user with its flat neighbor list.
	ListNeighbors(ctx context.Context) ([]social.NeighborRecord, error)
}

// GraphStore is the capability set of the secondary graph store.
type GraphStore interface {
	UpsertUser(ctx context.Context, node social.UserNode) error
	UpsertFriendship(ctx context.Context, owner, friend string, props social.EdgeProps) error

	// ClearAll wipes the store. It must either fully succeed or leave the
	// store as it was.
	ClearAll(ctx context.Context) error

	ListFriendships(ctx context.Context, userID string) ([]social.FriendshipView, error)
	GetOnlineStatus(ctx context.Context, userID string) (bool, error)
	ListFriendGroups(ctx context.Context, userID string) ([]social.GroupView, error)
	ListInteractionHistory(ctx context.Context, owner, friend string) ([]social.Interaction, error)
}

// DefaultWorkers is the default size of the sync worker pool.
const DefaultWorkers = 4

// Engine drives synchronization and audits between the two stores.
// An Engine holds no mutable state between calls and is safe for
// concurrent use.
type Engine struct {
	primary   PrimaryReader
	graph     GraphStore
	projector *project.Projector
	logger    *slog.Logger
	runIDs    RunIDGenerator
	metrics   *Metrics
	now       func() time.Time
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the sync worker pool size. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunIDGenerator overrides the run ID generator (for tests).
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithMetrics enables prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the wall clock used for defaulted timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine over the given stores.
func New(primary PrimaryReader, graph GraphStore, opts ...Option) *Engine {
	e := &Engine{
		primary: primary,
		graph:   graph,
		logger:  slog.Default(),
		runIDs:  RunIDFunc(NewRunID),
		now:     time.Now,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}

	d := project.DefaultDefaults()
	d.Now = e.now
	e.projector = project.New(d)
	return e
}

// runIsolated calls fn for items [0, n) on the worker pool. fn never
// aborts the batch. Once ctx is cancelled no new item starts; items in
// flight finish under a context that ignores the cancellation.
// Returns ctx.Err() if the batch was cut short.
func (e *Engine) runIsolated(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var g errgroup.Group
	g.SetLimit(e.workers)
	itemCtx := context.WithoutCancel(ctx)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			// Queued behind a busy worker; re-check before starting.
			if ctx.Err() != nil {
				return nil
			}
			fn(itemCtx, i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// runFailFast calls fn for items [0, n) on the worker pool and stops at
// the first error, cancelling the items still queued. Items run under a
// context only that first error cancels, so a cancelled ctx lets the
// items in flight finish and starts no new ones. Returns the first item
// error, else ctx.Err().
func (e *Engine) runFailFast(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(e.workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil || gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
