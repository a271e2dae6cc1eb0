package social

import "time"

// UserRecord is a user document as held by the primary store.
//
// Optional sub-structures are pointers or untyped values so that absence and
// malformed data survive decoding; normalization is the projector's job.
type UserRecord struct {
	ID              string           `json:"id" yaml:"id"`
	Username        string           `json:"username" yaml:"username"`
	Interests       any              `json:"interests,omitempty" yaml:"interests,omitempty"`
	ActivityMetrics *ActivityMetrics `json:"activityMetrics,omitempty" yaml:"activity_metrics,omitempty"`
	Friendships     []Friendship     `json:"friendships,omitempty" yaml:"friendships,omitempty"`
	FriendGroups    []FriendGroup    `json:"friendGroups,omitempty" yaml:"friend_groups,omitempty"`
	OnlineStatus    *OnlineStatus    `json:"onlineStatus,omitempty" yaml:"online_status,omitempty"`
}

// ActivityMetrics holds per-user engagement numbers.
type ActivityMetrics struct {
	InteractionFrequency float64 `json:"interactionFrequency" yaml:"interaction_frequency"`
}

// Friendship is a friendship embedded in its owner's record.
// InteractionCount is untyped: documents in the wild carry numbers, numeric
// strings, nulls or nothing at all.
type Friendship struct {
	Friend           string        `json:"friend" yaml:"friend"`
	Status           Status        `json:"status,omitempty" yaml:"status,omitempty"`
	InteractionCount any           `json:"interactionCount,omitempty" yaml:"interaction_count,omitempty"`
	LastInteraction  *time.Time    `json:"lastInteraction,omitempty" yaml:"last_interaction,omitempty"`
	Interactions     []Interaction `json:"interactions,omitempty" yaml:"interactions,omitempty"`
}

// Interaction is one discrete interaction event on a friendship.
type Interaction struct {
	Kind string    `json:"kind" yaml:"kind"`
	At   time.Time `json:"at" yaml:"at"`
}

// FriendGroup is a named group of friends owned by a user.
type FriendGroup struct {
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`
}

// OnlineStatus is the presence sub-structure of a user record.
type OnlineStatus struct {
	IsOnline bool `json:"isOnline" yaml:"is_online"`
}

// NeighborRecord is the alternate, flat representation of a user's friends
// used by the destructive rebuild path.
type NeighborRecord struct {
	User    UserRecord
	Friends []string
}

// UserNode is the graph-store projection of a user.
type UserNode struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Interests     []string `json:"interests"`
	ActivityScore float64  `json:"activity_score"`
}

// EdgeProps carries the mutable attributes of a friendship edge.
type EdgeProps struct {
	Status           Status    `json:"status"`
	InteractionCount int64     `json:"interaction_count"`
	LastInteraction  time.Time `json:"last_interaction"`
}

// FriendshipEdge is the graph-store projection of a friendship.
// Owner and Friend form an unordered pair; Owner is only the side that
// happened to carry the record.
type FriendshipEdge struct {
	Owner  string `json:"owner"`
	Friend string `json:"friend"`
	EdgeProps
}

// Pair returns the endpoints in canonical (lexicographic) order.
func (e FriendshipEdge) Pair() (string, string) {
	return CanonicalPair(e.Owner, e.Friend)
}

// CanonicalPair orders two user IDs so an undirected pair has one key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// FriendshipView is one friendship as seen from a single user's side.
type FriendshipView struct {
	FriendID string `json:"friend_id"`
	Status   Status `json:"status"`
}

// GroupView is a friend group as read back from either store.
type GroupView struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}
