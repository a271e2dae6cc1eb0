// Package engine implements the graphsync synchronization and
// consistency-validation engine.
//
// The engine sits between two stores that hold the same social graph:
// the primary record store (authoritative per-user documents) and the
// graph store (a derived projection for relationship queries). It talks
// to both only through the narrow PrimaryReader and GraphStore interfaces.
//
// ARCHITECTURE:
//
// Sync Orchestrator (sync.go):
//   - SyncAllUsers / SyncAllFriendships are incremental. Each item is
//     isolated: a failing user or edge is logged, recorded in the
//     BatchResult and the batch carries on.
//   - SyncAllData is the destructive rebuild. It clears the graph store and
//     repopulates it from the flat neighbor lists. Any error aborts the
//     remaining work and is returned; a half-rebuilt store must never be
//     reported as done.
//
// Consistency Validator (validate.go):
//   - ValidateDataConsistency is exhaustive and returns every divergent
//     friendship edge.
//   - ValidateOnlineStatus, ValidateFriendGroups and ValidateInteractions
//     are fail-fast checks returning on the first mismatch.
//   - Audits never write. A mismatch is a result, not an error; only a
//     failed read makes an audit return an error.
//
// Repair (repair.go) is the explicit, separately invoked backfill of edges
// an audit found missing from the graph store.
//
// CONCURRENCY:
//
// Sync operations fan out over a bounded worker pool (errgroup with a
// limit, see WithWorkers). Results are accumulated under a mutex. Audits
// run sequentially: fail-fast answers and per-pair de-duplication depend on
// enumeration order.
//
// Cancelling the context stops new items from starting. Items already in
// flight on the incremental paths run to completion; nothing already
// written is rolled back.
package engine
