package engine

import (
	"context"
	"sort"
	"time"

	"github.com/roach88/graphsync/internal/social"
)

// ValidateDataConsistency compares every user's friendship set across the
// two stores and returns one Divergence per user with differences. An
// empty result means the edge sets agree.
//
// The primary side is symmetrized first: a friendship recorded only on the
// owner's document counts for both endpoints, matching the undirected
// graph store. Differences are by friend ID only; a status difference alone
// is not a divergence. Each unordered pair is reported once, under the
// first user in enumeration order whose audit surfaces it.
func (e *Engine) ValidateDataConsistency(ctx context.Context) ([]social.Divergence, error) {
	start := time.Now()
	log := e.logger.With("run_id", e.runIDs.Generate(), "op", string(OpValidateEdges))

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return nil, newSyncError(ErrCodeReadFailed, OpValidateEdges, "", err)
	}

	primarySets := symmetrize(users)
	reported := make(map[[2]string]bool)
	out := []social.Divergence{}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		secondary, err := e.graph.ListFriendships(ctx, u.ID)
		if err != nil {
			return nil, newSyncError(ErrCodeReadFailed, OpValidateEdges, u.ID, err)
		}

		primary := primarySets[u.ID]
		inSecondary := make(map[string]bool, len(secondary))
		for _, v := range secondary {
			inSecondary[v.FriendID] = true
		}

		missingInSecondary := []social.FriendshipView{}
		for friendID, status := range primary {
			if !inSecondary[friendID] && !reported[pairKey(u.ID, friendID)] {
				missingInSecondary = append(missingInSecondary, social.FriendshipView{FriendID: friendID, Status: status})
			}
		}
		missingInPrimary := []social.FriendshipView{}
		for _, v := range secondary {
			if _, ok := primary[v.FriendID]; !ok && !reported[pairKey(u.ID, v.FriendID)] {
				missingInPrimary = append(missingInPrimary, v)
			}
		}

		if len(missingInSecondary) == 0 && len(missingInPrimary) == 0 {
			continue
		}

		sortViews(missingInSecondary)
		sortViews(missingInPrimary)
		for _, v := range missingInSecondary {
			reported[pairKey(u.ID, v.FriendID)] = true
		}
		for _, v := range missingInPrimary {
			reported[pairKey(u.ID, v.FriendID)] = true
		}

		log.Warn("friendship divergence",
			"user", u.ID,
			"username", u.Username,
			"missing_in_secondary", len(missingInSecondary),
			"missing_in_primary", len(missingInPrimary),
		)
		out = append(out, social.Divergence{
			UserID:             u.ID,
			Username:           u.Username,
			Dimension:          social.DimensionFriendships,
			MissingInSecondary: missingInSecondary,
			MissingInPrimary:   missingInPrimary,
		})
	}

	e.metrics.observeMismatch(social.DimensionFriendships, len(out))
	e.metrics.observeDuration(OpValidateEdges, time.Since(start))
	log.Info("friendship audit complete", "users", len(users), "divergent_users", len(out))
	return out, nil
}

// ValidateOnlineStatus compares each user's presence flag across stores and
// returns false at the first mismatch. A primary record without a
// presence sub-structure counts as offline.
func (e *Engine) ValidateOnlineStatus(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() { e.metrics.observeDuration(OpValidateOnline, time.Since(start)) }()
	log := e.logger.With("run_id", e.runIDs.Generate(), "op", string(OpValidateOnline))

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return false, newSyncError(ErrCodeReadFailed, OpValidateOnline, "", err)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		secondary, err := e.graph.GetOnlineStatus(ctx, u.ID)
		if err != nil {
			return false, newSyncError(ErrCodeReadFailed, OpValidateOnline, u.ID, err)
		}
		primary := u.OnlineStatus != nil && u.OnlineStatus.IsOnline

		if primary != secondary {
			log.Warn("online status mismatch",
				"user", u.ID,
				"username", u.Username,
				"primary", primary,
				"secondary", secondary,
			)
			e.metrics.observeMismatch(social.DimensionOnlineStatus, 1)
			return false, nil
		}
	}
	return true, nil
}

// ValidateFriendGroups compares each user's groups across stores and
// returns false at the first mismatch: first the number of groups, then,
// for every primary group, the member count of the same-named group.
func (e *Engine) ValidateFriendGroups(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() { e.metrics.observeDuration(OpValidateGroups, time.Since(start)) }()
	log := e.logger.With("run_id", e.runIDs.Generate(), "op", string(OpValidateGroups))

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return false, newSyncError(ErrCodeReadFailed, OpValidateGroups, "", err)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		secondary, err := e.graph.ListFriendGroups(ctx, u.ID)
		if err != nil {
			return false, newSyncError(ErrCodeReadFailed, OpValidateGroups, u.ID, err)
		}

		if len(secondary) != len(u.FriendGroups) {
			log.Warn("friend group count mismatch",
				"user", u.ID,
				"username", u.Username,
				"primary", len(u.FriendGroups),
				"secondary", len(secondary),
			)
			e.metrics.observeMismatch(social.DimensionFriendGroups, 1)
			return false, nil
		}

		byName := make(map[string]social.GroupView, len(secondary))
		for _, g := range secondary {
			byName[g.Name] = g
		}
		for _, pg := range u.FriendGroups {
			sg, ok := byName[pg.Name]
			if !ok || len(sg.Members) != len(pg.Members) {
				log.Warn("friend group members mismatch",
					"user", u.ID,
					"username", u.Username,
					"group", pg.Name,
					"found", ok,
					"primary", len(pg.Members),
					"secondary", len(sg.Members),
				)
				e.metrics.observeMismatch(social.DimensionFriendGroups, 1)
				return false, nil
			}
		}
	}
	return true, nil
}

// ValidateInteractions compares, for every embedded friendship, the number
// of interaction events each store holds, returning false at the first
// mismatch. Event content and order are not compared.
func (e *Engine) ValidateInteractions(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() { e.metrics.observeDuration(OpValidateInteract, time.Since(start)) }()
	log := e.logger.With("run_id", e.runIDs.Generate(), "op", string(OpValidateInteract))

	users, err := e.primary.ListUsers(ctx)
	if err != nil {
		return false, newSyncError(ErrCodeReadFailed, OpValidateInteract, "", err)
	}

	for _, u := range users {
		for _, f := range u.Friendships {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if f.Friend == "" {
				continue
			}

			secondary, err := e.graph.ListInteractionHistory(ctx, u.ID, f.Friend)
			if err != nil {
				return false, newSyncError(ErrCodeReadFailed, OpValidateInteract, edgeKey(u.ID, f.Friend), err)
			}

			if len(secondary) != len(f.Interactions) {
				log.Warn("interaction count mismatch",
					"user", u.ID,
					"username", u.Username,
					"friend", f.Friend,
					"primary", len(f.Interactions),
					"secondary", len(secondary),
				)
				e.metrics.observeMismatch(social.DimensionInteractions, 1)
				return false, nil
			}
		}
	}
	return true, nil
}

// AuditReport bundles the results of all four audits.
type AuditReport struct {
	Divergences            []social.Divergence `json:"divergences"`
	OnlineStatusConsistent bool                `json:"online_status_consistent"`
	FriendGroupsConsistent bool                `json:"friend_groups_consistent"`
	InteractionsConsistent bool                `json:"interactions_consistent"`
}

// Consistent reports whether every audited dimension agreed.
func (r *AuditReport) Consistent() bool {
	return len(r.Divergences) == 0 && r.OnlineStatusConsistent && r.FriendGroupsConsistent && r.InteractionsConsistent
}

// Audit runs all four audits in turn. The first read failure aborts it.
func (e *Engine) Audit(ctx context.Context) (*AuditReport, error) {
	var r AuditReport
	var err error

	if r.Divergences, err = e.ValidateDataConsistency(ctx); err != nil {
		return nil, err
	}
	if r.OnlineStatusConsistent, err = e.ValidateOnlineStatus(ctx); err != nil {
		return nil, err
	}
	if r.FriendGroupsConsistent, err = e.ValidateFriendGroups(ctx); err != nil {
		return nil, err
	}
	if r.InteractionsConsistent, err = e.ValidateInteractions(ctx); err != nil {
		return nil, err
	}
	return &r, nil
}

// symmetrize builds, per user, the set of friend IDs the primary store
// implies, counting each embedded friendship for both endpoints. A user's
// own record wins over the reverse entry for the status.
func symmetrize(users []social.UserRecord) map[string]map[string]social.Status {
	sets := make(map[string]map[string]social.Status, len(users))
	add := func(user, friend string, status social.Status, own bool) {
		set, ok := sets[user]
		if !ok {
			set = make(map[string]social.Status)
			sets[user] = set
		}
		if _, exists := set[friend]; exists && !own {
			return
		}
		set[friend] = status
	}

	for _, u := range users {
		for _, f := range u.Friendships {
			if f.Friend == "" || f.Friend == u.ID {
				continue
			}
			add(u.ID, f.Friend, f.Status.OrDefault(), true)
		}
	}
	for _, u := range users {
		for _, f := range u.Friendships {
			if f.Friend == "" || f.Friend == u.ID {
				continue
			}
			add(f.Friend, u.ID, f.Status.OrDefault(), false)
		}
	}
	return sets
}

func pairKey(a, b string) [2]string {
	lo, hi := social.CanonicalPair(a, b)
	return [2]string{lo, hi}
}

func sortViews(v []social.FriendshipView) {
	sort.Slice(v, func(i, j int) bool { return v[i].FriendID < v[j].FriendID })
}
