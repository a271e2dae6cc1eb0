package social

// Dimension names one of the audited consistency dimensions.
type Dimension string

const (
	DimensionFriendships  Dimension = "friendships"
	DimensionOnlineStatus Dimension = "online_status"
	DimensionFriendGroups Dimension = "friend_groups"
	DimensionInteractions Dimension = "interactions"
)

// Divergence is one entry of a friendship-edge audit: the edges one store
// has for a user that the other lacks.
type Divergence struct {
	UserID             string           `json:"user_id"`
	Username           string           `json:"username"`
	Dimension          Dimension        `json:"dimension"`
	MissingInSecondary []FriendshipView `json:"missing_in_secondary"`
	MissingInPrimary   []FriendshipView `json:"missing_in_primary"`
}
