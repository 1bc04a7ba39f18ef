package store

import (
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) ListTablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (postgresDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
}

func (postgresDialect) QuoteIdent(name string) string { return quoteWith(name, `"`, `"`) }

func (postgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index+1) }

func (postgresDialect) TextType() string { return "TEXT" }

func (d postgresDialect) CreateTable(table string, cols []string) string {
	return createTableSQL(d, table, cols)
}

func (postgresDialect) Paginate(query string, limit, offset int) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, limit, offset)
}

func (d postgresDialect) LikeExpr(column string, index int) string {
	return fmt.Sprintf("CAST(%s AS TEXT) LIKE %s ESCAPE '!'", d.QuoteIdent(column), d.Placeholder(index))
}
