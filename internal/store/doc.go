// Package store holds the image collection the search compiler runs against.
//
// Two backends share the Rows interface:
//   - Store: SQLite via mattn/go-sqlite3, used locally and in tests. Tags are
//     a JSON array column and the value_digest SQL function is registered on
//     every connection.
//   - PostgresStore: pgx connection pool, the production backend. Tags are a
//     bigint[] column.
//
// # Tables
//
//   - tags: id, unique tag name, active flag
//   - images: id, unique binary hash, active flag, tag id list, caption
//   - image_attributes: (image_id, key, value) triples with the SHA-256
//     digest of value, unique per triple
//
// Removing a tag or image deactivates it rather than deleting the row, so
// ids stay stable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
