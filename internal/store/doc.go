// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Review progress is persisted as whole per-user snapshots: every write
// replaces the user's complete set of review states. Implementations live
// under internal/platform (file, sqlite, postgres) plus the in-memory
// MemoryProgressStore in this package.
package store
