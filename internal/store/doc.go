// Package store persists tokens and their daily volumes.
//
// Tables:
//   - tokens:        id (PK), name
//   - token_volumes: token_id (FK tokens.id), total_volume (nullable), date;
//     primary key (token_id, date)
//
// Volume writes are single-statement upserts keyed on (token_id, date), so a
// job retried on the same day overwrites its earlier row instead of adding one.
package store
