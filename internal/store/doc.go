// Package store provides SQLite-backed durable storage for graphs.
//
// Graphs are content-addressed: a graph is stored under graph.ID, so
// writing the same graph twice is a no-op. Labels give graphs stable,
// human-chosen names and can be moved from one graph to another.
//
// # Ordering
//
//   - Every write takes a seq from the store's Clock (a logical clock,
//     never wall time)
//   - Listings are ORDER BY seq ASC, id ASC COLLATE BINARY, so they are
//     identical across runs given the same writes
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Labels must point at stored graphs
package store
