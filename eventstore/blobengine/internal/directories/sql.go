package directories

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect import

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
)

const (
	colBlobName = "name"
	colBlobData = "data"
)

// SQLDirectory stores blobs as rows of a two-column table
// (name primary key, data bytes). Statements are built with goqu in prepared
// form, so blob content never needs to be interpolated into SQL text.
type SQLDirectory struct {
	db      DB
	table   string
	dialect goqu.DialectWrapper
}

// NewSQLDirectory creates a directory over the given table using the given
// goqu dialect ("postgres", "sqlite3"). The table must already exist.
func NewSQLDirectory(db DB, dialect string, table string) (*SQLDirectory, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	if dialect == "" {
		return nil, eventstore.ErrEmptySQLDialect
	}

	if table == "" {
		return nil, eventstore.ErrEmptyBlobTableName
	}

	return &SQLDirectory{
		db:      db,
		table:   table,
		dialect: goqu.Dialect(dialect),
	}, nil
}

// Write upserts the named blob row.
func (d *SQLDirectory) Write(ctx context.Context, name string, data []byte) error {
	stmt := d.dialect.
		Insert(d.table).
		Cols(colBlobName, colBlobData).
		Vals(goqu.Vals{name, data}).
		OnConflict(goqu.DoUpdate(colBlobName, goqu.Record{colBlobData: data})).
		Prepared(true)

	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return toSQLErr
	}

	_, execErr := d.db.Exec(ctx, sqlQuery, args...)

	return execErr
}

// Read returns the content of the named blob row.
func (d *SQLDirectory) Read(ctx context.Context, name string) ([]byte, error) {
	stmt := d.dialect.
		From(d.table).
		Select(colBlobData).
		Where(goqu.Ex{colBlobName: name}).
		Prepared(true)

	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return nil, toSQLErr
	}

	rows, queryErr := d.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return nil, queryErr
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, eventstore.ErrBlobNotFound
	}

	var data []byte
	if scanErr := rows.Scan(&data); scanErr != nil {
		return nil, scanErr
	}

	return data, nil
}

// List enumerates all blob names in the table.
func (d *SQLDirectory) List(ctx context.Context) ([]string, error) {
	stmt := d.dialect.
		From(d.table).
		Select(colBlobName).
		Prepared(true)

	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return nil, toSQLErr
	}

	rows, queryErr := d.db.Query(ctx, sqlQuery, args...)
	if queryErr != nil {
		return nil, queryErr
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, scanErr
		}
		names = append(names, name)
	}

	return names, nil
}

// Delete removes the named blob row.
func (d *SQLDirectory) Delete(ctx context.Context, name string) error {
	stmt := d.dialect.
		Delete(d.table).
		Where(goqu.Ex{colBlobName: name}).
		Prepared(true)

	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return toSQLErr
	}

	result, execErr := d.db.Exec(ctx, sqlQuery, args...)
	if execErr != nil {
		return execErr
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return rowsAffectedErr
	}

	if rowsAffected == 0 {
		return eventstore.ErrBlobNotFound
	}

	return nil
}

// Ensure SQLDirectory implements eventstore.BlobDirectory.
var _ eventstore.BlobDirectory = (*SQLDirectory)(nil)
