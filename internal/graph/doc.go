// Package graph provides the SQLite-backed secondary (graph) store.
//
// The store keeps user nodes and undirected friendship edges. An edge is
// stored once under its canonical pair (lo < hi) regardless of which
// endpoint wrote it, so an owner->friend write and a friend->owner write
// address the same row. Reads are answered from the perspective of the
// requesting user.
//
// Upserts are idempotent: rows are keyed by identity and carry a content
// hash, and an upsert whose content is unchanged does not touch the row.
//
// Presence, friend groups and interaction history are written by the
// application's live write path (SetOnlineStatus, PutFriendGroup,
// AppendInteraction); the sync engine only reads them.
//
// Referential integrity is enforced: an edge requires both nodes, and
// presence/groups/interactions require their owning node or edge.
package graph
