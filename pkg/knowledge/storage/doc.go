// Package storage provides persistence backends for the knowledge base.
//
// Two backends are available:
//   - MemoryStorage keeps entries in process memory. It is the default for
//     one-off CLI runs and tests.
//   - SQLiteStorage persists entries in a SQLite database. The pure Go
//     modernc.org/sqlite driver is used by default; the cgo driver
//     github.com/mattn/go-sqlite3 can be selected with Driver "cgo".
//
// Entries are keyed by the (action, reason) pair stored in two separate
// columns, so no separator can make two pairs collide.
package storage
