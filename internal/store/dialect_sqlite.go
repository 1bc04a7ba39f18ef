package store

import (
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) ListTablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (sqliteDialect) ColumnsQuery() string {
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}

func (sqliteDialect) QuoteIdent(name string) string { return quoteWith(name, `"`, `"`) }
func (sqliteDialect) Placeholder(int) string        { return "?" }
func (sqliteDialect) TextType() string              { return "TEXT" }

func (d sqliteDialect) CreateTable(table string, cols []string) string {
	return createTableSQL(d, table, cols)
}

func (sqliteDialect) Paginate(query string, limit, offset int) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, limit, offset)
}

// LIKE is case-insensitive for ASCII in SQLite; GLOB has no escape clause, so
// substring filters stay case-insensitive here.
func (d sqliteDialect) LikeExpr(column string, index int) string {
	return fmt.Sprintf("CAST(%s AS TEXT) LIKE %s ESCAPE '!'", d.QuoteIdent(column), d.Placeholder(index))
}
