// Package catalog persists the customer recording inventory in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// queries the pipeline and diarization tooling need: batched listing, EAF
// completion tracking, and processed-at stamps. SQLITE_BUSY contention is
// retried with backoff so concurrent readers do not surface spurious errors.
package catalog
