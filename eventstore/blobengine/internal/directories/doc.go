// Package directories provides the BlobDirectory implementations behind the
// blobengine constructors: a filesystem directory (one file per blob), an
// in-memory directory, a badger-backed directory, and a SQL-table-backed
// directory supporting pgx pools, sql.DB, and sqlx.DB connections.
//
// All implementations translate their backend's "does not exist" condition
// into eventstore.ErrBlobNotFound so the engine can classify not-found
// uniformly.
package directories
