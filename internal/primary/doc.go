// Package primary provides the SQLite-backed primary record store.
//
// Each user is persisted as a single JSON document (the shape of
// social.UserRecord) with friendships, groups, interactions and presence
// embedded, mirroring a document database. A separate user_friends table
// holds the flat neighbor list consumed by the destructive rebuild.
//
// Enumeration order is insertion order (seq). Re-putting an existing user
// replaces the document but keeps its original position.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package primary
