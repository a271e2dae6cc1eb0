// Package social defines the shared data model of the graphsync engine.
//
// Two shapes live side by side:
//   - Primary-store records (UserRecord, Friendship, FriendGroup, ...): the
//     authoritative per-user documents, with loosely typed fields exactly as
//     they are persisted (optional sub-structures, untyped counts).
//   - Graph-store projections (UserNode, FriendshipEdge, GroupView, ...): the
//     normalized node/edge shape written to and read from the graph store.
//
// Audit results (Divergence) are also defined here so that the engine, the
// CLI and the harness agree on a single serialized form.
//
// Status values are opaque. Nothing in this module branches on a status
// other than substituting DefaultStatus when the source omits one.
package social
