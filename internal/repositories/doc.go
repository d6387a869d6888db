// Package repositories implements persistence for thumbx.
//
// Local state lives in SQLite:
//   - [SessionRepository] : the single persisted identity session (implements services.SessionPersister)
//   - [JobRepository] : history of paid actions submitted from this client, with soft deletes
//
// [PostgresStore] reads profiles and jobs straight from the project database when a DSN is configured.
// It implements the same services.ProfileSource and services.JobSource contracts as the REST client.
//
// Sequence numbers provide stable, human-readable ordering (job #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
