// Package store provides SQLite-backed durable storage for the evaluator's
// compilation and invocation log.
//
// The store is an append-only log with:
//   - Compilations: every derived body, with its engine, IR fingerprint
//     and an lz4-compressed dump of the IR text
//   - Invocations: every call made through the evaluator, with inputs,
//     outputs or the failure message
//
// # Ordering
//
// All ordering uses the seq INTEGER assigned by the evaluator's logical
// clock, never timestamps. Queries order by seq ASC, id ASC COLLATE BINARY
// so listings are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
