// Package store persists case records in SQLite and notifies subscribers on
// every successful mutation.
//
// The Store owns the database connection, schema initialization, upsert
// semantics (exactly one row per case ID, enforced by the primary key), and
// a per-instance subscriber registry whose fan-out is synchronous: Save and
// Remove do not return until every listener has seen the new snapshot. A
// panicking listener is isolated so the others still run.
//
// Analysis results live in a JSON column next to their case row; a corrupt
// blob degrades to "no results" rather than an error. Treat this package as
// the single source of truth for local case semantics; when you add fields,
// update schema.sql and bump schemaVersion.
package store
