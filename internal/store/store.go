// Package store keeps uploaded datasets as relational tables and reads them
// back for profiling, filtering and value summaries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tabinsight/internal/profile"
)

var (
	// ErrTableExists is returned by CreateTable when the table is already present.
	ErrTableExists = errors.New("table already exists")
	// ErrTableNotFound is returned when a table name is not in the live table list.
	ErrTableNotFound = errors.New("table not found")
	// ErrInvalidIdentifier is returned for table or column names outside the allow-list.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnknownColumn is returned when a filter names a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 1000
)

// Options configures the connection pool.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store owns a sized connection pool. Every operation checks out one
// connection for its duration and returns it on all paths.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database described by opt and verifies it with a ping.
func Open(ctx context.Context, opt Options) (*Store, error) {
	d, err := ForDriver(opt.Driver)
	if err != nil {
		return nil, err
	}
	dsn := opt.DSN
	if d.Name() == "sqlite" {
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if opt.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opt.MaxOpenConns)
	}
	if opt.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opt.MaxIdleConns)
	}
	if opt.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opt.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", d.Name(), err)
	}
	return &Store{db: db, dialect: d}, nil
}

// sqliteDSN creates the parent directory of a file database and enables WAL
// with a busy timeout unless the caller passed their own parameters.
func sqliteDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("sqlite dsn is empty")
	}
	if strings.HasPrefix(dsn, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dsn = filepath.Join(home, dsn[2:])
	}
	if strings.Contains(dsn, "?") || strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn, nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// ListTables returns the user tables of the current schema, sorted by name.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var out []string
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		out, err = s.listTables(ctx, conn)
		return err
	})
	return out, err
}

func (s *Store) listTables(ctx context.Context, conn *sql.Conn) ([]string, error) {
	return queryStrings(ctx, conn, s.dialect.ListTablesQuery())
}

// resolveTable validates name and checks it against the live table list.
func (s *Store) resolveTable(ctx context.Context, conn *sql.Conn, name string) error {
	if err := ValidateIdent(name); err != nil {
		return err
	}
	tables, err := s.listTables(ctx, conn)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTableNotFound, name)
}

// Columns returns the column names of table in ordinal order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	var out []string
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		if err := s.resolveTable(ctx, conn, table); err != nil {
			return err
		}
		var err error
		out, err = queryStrings(ctx, conn, s.dialect.ColumnsQuery(), table)
		return err
	})
	return out, err
}

// CreateTable creates table with one text column per dataset column and
// inserts every row in a single transaction. Missing values become NULL.
func (s *Store) CreateTable(ctx context.Context, table string, ds profile.Dataset) error {
	if err := ValidateIdent(table); err != nil {
		return err
	}
	if len(ds.Columns) == 0 {
		return fmt.Errorf("table %s: dataset has no columns", table)
	}
	for _, c := range ds.Columns {
		if err := ValidateIdent(c); err != nil {
			return err
		}
	}
	if err := ds.Validate(); err != nil {
		return err
	}
	norm := profile.Normalize(ds)

	return s.withConn(ctx, func(conn *sql.Conn) error {
		tables, err := s.listTables(ctx, conn)
		if err != nil {
			return err
		}
		for _, t := range tables {
			if strings.EqualFold(t, table) {
				return fmt.Errorf("%w: %s", ErrTableExists, table)
			}
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, s.dialect.CreateTable(table, norm.Columns)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL(s.dialect, table, norm.Columns))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(norm.Columns))
		for i, r := range norm.Rows {
			for j, c := range norm.Columns {
				args[j] = textValue(r[c])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// textValue renders a normalized value for a text column.
func textValue(v any) any {
	if profile.IsMissing(v) {
		return nil
	}
	switch x := profile.SanitizeValue(v).(type) {
	case nil:
		return nil
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// FetchAll reads every row of table into a dataset. Values are strings, or
// nil for NULL; non-text columns come back as the driver's scalar types.
func (s *Store) FetchAll(ctx context.Context, table string) (profile.Dataset, error) {
	var ds profile.Dataset
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		if err := s.resolveTable(ctx, conn, table); err != nil {
			return err
		}
		cols, err := queryStrings(ctx, conn, s.dialect.ColumnsQuery(), table)
		if err != nil {
			return err
		}
		ds.Columns = cols
		ds.Rows, err = queryRows(ctx, conn, cols, "SELECT "+s.selectList(cols)+" FROM "+s.dialect.QuoteIdent(table))
		return err
	})
	if err != nil {
		return profile.Dataset{}, err
	}
	return ds, nil
}

// FilterQuery selects one page of rows whose columns contain the given substrings.
type FilterQuery struct {
	Filters map[string]string
	Page    int // 1-based
	Limit   int
}

// FilterResult is one page of matching rows plus the total match count.
type FilterResult struct {
	Columns      []string
	Rows         []profile.Row
	TotalRecords int
}

// Filter returns rows of table matching every non-empty filter. Page defaults
// to 1; Limit defaults to 10 and is clamped to [1, 1000].
func (s *Store) Filter(ctx context.Context, table string, q FilterQuery) (FilterResult, error) {
	page := max(q.Page, 1)
	limit := q.Limit
	switch {
	case limit == 0:
		limit = defaultPageLimit
	case limit < 1:
		limit = 1
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	var res FilterResult
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		if err := s.resolveTable(ctx, conn, table); err != nil {
			return err
		}
		cols, err := queryStrings(ctx, conn, s.dialect.ColumnsQuery(), table)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(cols))
		for _, c := range cols {
			known[c] = true
		}

		keys := make([]string, 0, len(q.Filters))
		for k, v := range q.Filters {
			if v != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var conds []string
		var args []any
		for _, k := range keys {
			if err := ValidateIdent(k); err != nil {
				return err
			}
			if !known[k] {
				return fmt.Errorf("%w: %s", ErrUnknownColumn, k)
			}
			conds = append(conds, s.dialect.LikeExpr(k, len(args)))
			args = append(args, likePattern(q.Filters[k]))
		}
		where := ""
		if len(conds) > 0 {
			where = " WHERE " + strings.Join(conds, " AND ")
		}
		from := " FROM " + s.dialect.QuoteIdent(table) + where

		if err := conn.QueryRowContext(ctx, "SELECT COUNT(*)"+from, args...).Scan(&res.TotalRecords); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		query := s.dialect.Paginate("SELECT "+s.selectList(cols)+from, limit, (page-1)*limit)
		res.Columns = cols
		res.Rows, err = queryRows(ctx, conn, cols, query, args...)
		return err
	})
	return res, err
}

// ValueCount is how often one value occurs in a column. Value is nil for NULL.
type ValueCount struct {
	Value any
	Count int
}

// ValueCounts returns, per column, each distinct value with its frequency,
// most frequent first and ties ordered by value with NULL first.
func (s *Store) ValueCounts(ctx context.Context, table string) (map[string][]ValueCount, error) {
	out := map[string][]ValueCount{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		if err := s.resolveTable(ctx, conn, table); err != nil {
			return err
		}
		cols, err := queryStrings(ctx, conn, s.dialect.ColumnsQuery(), table)
		if err != nil {
			return err
		}
		for _, c := range cols {
			qc := s.dialect.QuoteIdent(c)
			query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s", qc, s.dialect.QuoteIdent(table), qc)
			counts, err := queryCounts(ctx, conn, query)
			if err != nil {
				return fmt.Errorf("value counts %s.%s: %w", table, c, err)
			}
			out[c] = counts
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) selectList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = s.dialect.QuoteIdent(c)
	}
	return strings.Join(q, ", ")
}

func queryStrings(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryRows(ctx context.Context, conn *sql.Conn, cols []string, query string, args ...any) ([]profile.Row, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []profile.Row{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(profile.Row, len(cols))
		for i, c := range cols {
			r[c] = scanned(vals[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryCounts(ctx context.Context, conn *sql.Conn, query string) ([]ValueCount, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ValueCount{}
	for rows.Next() {
		var v any
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, err
		}
		out = append(out, ValueCount{Value: scanned(v), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Value == nil || out[j].Value == nil {
			return out[i].Value == nil && out[j].Value != nil
		}
		return fmt.Sprint(out[i].Value) < fmt.Sprint(out[j].Value)
	})
	return out, nil
}

// scanned copies driver-owned bytes into a string.
func scanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
