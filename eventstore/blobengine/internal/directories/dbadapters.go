package directories

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// DB is the minimal database surface the SQL directory needs, satisfied by
// thin wrappers around pgxpool.Pool, sql.DB, and sqlx.DB.
type DB interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBRows is the query result surface the SQL directory needs.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult is the execution result surface the SQL directory needs.
type DBResult interface {
	RowsAffected() (int64, error)
}

// PGXDB adapts a pgxpool.Pool to the DB interface.
type PGXDB struct {
	pool *pgxpool.Pool
}

// NewPGXDB creates a new pgx pool adapter.
func NewPGXDB(pool *pgxpool.Pool) *PGXDB {
	return &PGXDB{pool: pool}
}

// Query runs a query on the pool and wraps the resulting rows.
func (p *PGXDB) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Exec runs a statement on the pool and wraps the command tag.
func (p *PGXDB) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgxResult{tag: tag}, nil
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

type pgxResult struct {
	tag pgconn.CommandTag
}

func (r pgxResult) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}

// SQLDB adapts a standard library sql.DB to the DB interface.
type SQLDB struct {
	db *sql.DB
}

// NewSQLDB creates a new sql.DB adapter.
func NewSQLDB(db *sql.DB) *SQLDB {
	return &SQLDB{db: db}
}

// Query runs a query on the connection pool and wraps the resulting rows.
func (s *SQLDB) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec runs a statement on the connection pool and wraps the result.
func (s *SQLDB) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return result, nil
}

type stdRows struct {
	rows *sql.Rows
}

func (r *stdRows) Next() bool {
	return r.rows.Next()
}

func (r *stdRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *stdRows) Close() error {
	return r.rows.Close()
}

// SQLXDB adapts a sqlx.DB to the DB interface.
type SQLXDB struct {
	db *sqlx.DB
}

// NewSQLXDB creates a new sqlx adapter.
func NewSQLXDB(db *sqlx.DB) *SQLXDB {
	return &SQLXDB{db: db}
}

// Query runs a query through sqlx and wraps the resulting rows.
func (s *SQLXDB) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &sqlxRows{rows: rows}, nil
}

// Exec runs a statement through sqlx and wraps the result.
func (s *SQLXDB) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return result, nil
}

type sqlxRows struct {
	rows *sqlx.Rows
}

func (r *sqlxRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *sqlxRows) Close() error {
	return r.rows.Close()
}
