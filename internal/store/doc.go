// Package store provides SQLite-backed storage for rowgraph queries and
// documents.
//
// The store serves two read paths:
//   - Select: compiles a queryir.Select, runs it, and hands the joined rows
//     to a relational collection that hydrates root entities on demand
//   - Documents: streams JSON documents of one named collection into a lazy
//     document collection
//
// and one write path, SaveDocument, which writes only the minimal diff a
// document reports.
//
// # Critical Patterns
//
// Deterministic Query Results
//   - All queries include ORDER BY ... COLLATE BINARY
//   - Relational selects order by the root key first, so each root's rows are
//     contiguous
//
// Parameterized Values
//   - Values are always bound, never interpolated into SQL
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds a single connection. A lazy collection keeps that
// connection busy until it is exhausted or closed, so drain or close it
// before issuing the next statement.
package store
