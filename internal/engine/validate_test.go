package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/social"
)

func TestValidateDataConsistency_AfterSync(t *testing.T) {
	p, g := sqliteStores(t)
	ctx := context.Background()
	putUsers(t, p,
		user("a", friend("b"), friend("c")),
		user("b", friend("a")),
		user("c"),
		user("d", social.Friendship{Friend: "c", Status: "blocked"}),
	)
	eng := New(p, g, testOptions(WithWorkers(2))...)

	_, err := eng.SyncAllUsers(ctx)
	require.NoError(t, err)
	_, err = eng.SyncAllFriendships(ctx)
	require.NoError(t, err)

	divs, err := eng.ValidateDataConsistency(ctx)
	require.NoError(t, err)
	assert.NotNil(t, divs)
	assert.Empty(t, divs)
}

func TestValidateDataConsistency_StrayEdgeReportedOnce(t *testing.T) {
	p, g := sqliteStores(t)
	ctx := context.Background()
	putUsers(t, p, user("A", friend("B")), user("B"), user("C"))
	eng := New(p, g, testOptions()...)

	_, err := eng.SyncAllUsers(ctx)
	require.NoError(t, err)
	_, err = eng.SyncAllFriendships(ctx)
	require.NoError(t, err)
	require.NoError(t, g.UpsertFriendship(ctx, "A", "C", social.EdgeProps{Status: "regular", LastInteraction: testNow}))

	divs, err := eng.ValidateDataConsistency(ctx)
	require.NoError(t, err)
	require.Len(t, divs, 1)
	assert.Equal(t, social.Divergence{
		UserID:             "A",
		Username:           "user-A",
		Dimension:          social.DimensionFriendships,
		MissingInSecondary: []social.FriendshipView{},
		MissingInPrimary:   []social.FriendshipView{{FriendID: "C", Status: "regular"}},
	}, divs[0])
}

func TestValidateDataConsistency_ExtraPrimaryEdgeReportedOnce(t *testing.T) {
	fp := &fakePrimary{users: []social.UserRecord{
		user("a", friend("b"), social.Friendship{Friend: "c", Status: "close"}),
		user("b"),
		user("c"),
	}}
	fg := newFakeGraph()
	fg.edges[pairKey("a", "b")] = social.EdgeProps{Status: "regular"}
	eng := New(fp, fg, testOptions()...)

	divs, err := eng.ValidateDataConsistency(context.Background())
	require.NoError(t, err)
	require.Len(t, divs, 1)
	assert.Equal(t, "a", divs[0].UserID)
	assert.Equal(t, []social.FriendshipView{{FriendID: "c", Status: "close"}}, divs[0].MissingInSecondary)
	assert.Empty(t, divs[0].MissingInPrimary)
}

func TestValidateDataConsistency_StatusDifferenceIgnored(t *testing.T) {
	fp := &fakePrimary{users: []social.UserRecord{
		user("a", social.Friendship{Friend: "b", Status: "blocked"}),
		user("b"),
	}}
	fg := newFakeGraph()
	fg.edges[pairKey("a", "b")] = social.EdgeProps{Status: "regular"}
	eng := New(fp, fg, testOptions()...)

	divs, err := eng.ValidateDataConsistency(context.Background())
	require.NoError(t, err)
	assert.Empty(t, divs)
}

func TestValidateDataConsistency_ReadErrors(t *testing.T) {
	eng := New(&fakePrimary{err: errBoom}, newFakeGraph(), testOptions()...)
	_, err := eng.ValidateDataConsistency(context.Background())
	assert.Equal(t, ErrCodeReadFailed, CodeOf(err))

	fg := newFakeGraph()
	fg.readErr = errBoom
	eng = New(&fakePrimary{users: []social.UserRecord{user("a")}}, fg, testOptions()...)
	_, err = eng.ValidateDataConsistency(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "a", se.ItemID)
}

func TestValidateDataConsistency_CountsMismatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	fp := &fakePrimary{users: []social.UserRecord{user("a", friend("b")), user("b"), user("c", friend("d")), user("d")}}
	eng := New(fp, newFakeGraph(), testOptions(WithMetrics(m))...)

	divs, err := eng.ValidateDataConsistency(context.Background())
	require.NoError(t, err)
	assert.Len(t, divs, 2)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.mismatches.WithLabelValues(string(social.DimensionFriendships))))
}

func TestValidateChecks_RecordDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	fp := &fakePrimary{users: []social.UserRecord{user("a")}}
	eng := New(fp, newFakeGraph(), testOptions(WithMetrics(m))...)
	ctx := context.Background()

	_, err := eng.ValidateOnlineStatus(ctx)
	require.NoError(t, err)
	_, err = eng.ValidateFriendGroups(ctx)
	require.NoError(t, err)
	_, err = eng.ValidateInteractions(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, promtest.CollectAndCount(m.duration, "graphsync_operation_duration_seconds"))
}

func TestValidateOnlineStatus(t *testing.T) {
	online := &social.OnlineStatus{IsOnline: true}
	offline := &social.OnlineStatus{IsOnline: false}

	tests := []struct {
		name   string
		users  []social.UserRecord
		graph  map[string]bool
		expect bool
	}{
		{
			name:   "all agree",
			users:  []social.UserRecord{{ID: "a", OnlineStatus: online}, {ID: "b", OnlineStatus: offline}},
			graph:  map[string]bool{"a": true},
			expect: true,
		},
		{
			name:   "missing presence counts as offline",
			users:  []social.UserRecord{{ID: "a"}},
			graph:  map[string]bool{},
			expect: true,
		},
		{
			name:   "primary online, graph offline",
			users:  []social.UserRecord{{ID: "a", OnlineStatus: online}},
			graph:  map[string]bool{},
			expect: false,
		},
		{
			name:   "graph online, primary missing",
			users:  []social.UserRecord{{ID: "a"}, {ID: "b"}},
			graph:  map[string]bool{"b": true},
			expect: false,
		},
		{
			name:   "no users",
			expect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := newFakeGraph()
			for id, v := range tt.graph {
				fg.online[id] = v
			}
			eng := New(&fakePrimary{users: tt.users}, fg, testOptions()...)

			ok, err := eng.ValidateOnlineStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expect, ok)
		})
	}
}

func TestValidateOnlineStatus_ReadErrorPropagates(t *testing.T) {
	fg := newFakeGraph()
	fg.readErr = errBoom
	eng := New(&fakePrimary{users: []social.UserRecord{{ID: "a"}}}, fg, testOptions()...)

	ok, err := eng.ValidateOnlineStatus(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, ErrCodeReadFailed, CodeOf(err))
}

func TestValidateFriendGroups(t *testing.T) {
	closeFriends := social.FriendGroup{Name: "close", Members: []string{"b", "c"}}
	work := social.FriendGroup{Name: "work", Members: []string{"d"}}

	tests := []struct {
		name   string
		groups []social.FriendGroup
		graph  []social.GroupView
		expect bool
	}{
		{
			name:   "same groups",
			groups: []social.FriendGroup{closeFriends, work},
			graph: []social.GroupView{
				{Name: "work", Members: []string{"x"}},
				{Name: "close", Members: []string{"c", "b"}},
			},
			expect: true,
		},
		{
			name:   "no groups on either side",
			expect: true,
		},
		{
			name:   "group count differs",
			groups: []social.FriendGroup{closeFriends, work},
			graph:  []social.GroupView{{Name: "close", Members: []string{"b", "c"}}},
			expect: false,
		},
		{
			name:   "member count differs",
			groups: []social.FriendGroup{closeFriends},
			graph:  []social.GroupView{{Name: "close", Members: []string{"b"}}},
			expect: false,
		},
		{
			name:   "group name missing",
			groups: []social.FriendGroup{closeFriends},
			graph:  []social.GroupView{{Name: "family", Members: []string{"b", "c"}}},
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := newFakeGraph()
			fg.groups["a"] = tt.graph
			users := []social.UserRecord{{ID: "a", FriendGroups: tt.groups}}
			eng := New(&fakePrimary{users: users}, fg, testOptions()...)

			ok, err := eng.ValidateFriendGroups(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expect, ok)
		})
	}
}

func TestValidateInteractions(t *testing.T) {
	ev := func(kind string, minute int) social.Interaction {
		return social.Interaction{Kind: kind, At: testNow.Add(time.Duration(minute) * time.Minute)}
	}

	tests := []struct {
		name   string
		events []social.Interaction
		graph  []social.Interaction
		expect bool
	}{
		{
			name:   "same count, different content",
			events: []social.Interaction{ev("message", 1), ev("like", 2)},
			graph:  []social.Interaction{ev("poke", 9), ev("poke", 10)},
			expect: true,
		},
		{
			name:   "both empty",
			expect: true,
		},
		{
			name:   "graph missing events",
			events: []social.Interaction{ev("message", 1)},
			expect: false,
		},
		{
			name:   "graph has extra events",
			events: []social.Interaction{ev("message", 1)},
			graph:  []social.Interaction{ev("message", 1), ev("like", 2)},
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := newFakeGraph()
			fg.interactions[pairKey("a", "b")] = tt.graph
			users := []social.UserRecord{
				user("a", social.Friendship{Friend: "b", Interactions: tt.events}),
				user("b"),
			}
			eng := New(&fakePrimary{users: users}, fg, testOptions()...)

			ok, err := eng.ValidateInteractions(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expect, ok)
		})
	}
}

func TestAudit(t *testing.T) {
	fp := &fakePrimary{users: []social.UserRecord{
		{ID: "a", Username: "alice", OnlineStatus: &social.OnlineStatus{IsOnline: true},
			Friendships: []social.Friendship{friend("b")}},
		user("b"),
	}}
	fg := newFakeGraph()
	fg.edges[pairKey("a", "b")] = social.EdgeProps{Status: "regular"}
	fg.online["a"] = true
	eng := New(fp, fg, testOptions()...)

	report, err := eng.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent())

	fg.online["a"] = false
	report, err = eng.Audit(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.False(t, report.OnlineStatusConsistent)
	assert.True(t, report.FriendGroupsConsistent)
	assert.True(t, report.InteractionsConsistent)
	assert.Empty(t, report.Divergences)
}

func TestValidate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := New(&fakePrimary{users: []social.UserRecord{user("a")}}, newFakeGraph(), testOptions()...)

	_, err := eng.ValidateDataConsistency(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = eng.ValidateOnlineStatus(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
