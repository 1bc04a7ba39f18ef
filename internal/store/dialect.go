package store

import (
	"fmt"
	"strings"
)

// Dialect hides the SQL differences between supported databases.
type Dialect interface {
	// Name is the configured driver name.
	Name() string
	// DriverName is the name registered with database/sql.
	DriverName() string

	// ListTablesQuery returns user tables of the current schema, one name per row.
	ListTablesQuery() string
	// ColumnsQuery takes the table name as its only bind parameter and returns
	// column names in ordinal order.
	ColumnsQuery() string

	QuoteIdent(name string) string
	Placeholder(index int) string // 0-based; returns ?, $1, @p1, :1
	CreateTable(table string, cols []string) string
	Paginate(query string, limit, offset int) string
	TextType() string
	// LikeExpr renders a substring match of a column against the placeholder
	// at index. The bound pattern uses '!' as its escape character.
	LikeExpr(column string, index int) string
}

// ForDriver returns the dialect for a configured driver name.
func ForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "mysql", "mariadb":
		return mysqlDialect{}, nil
	case "postgres", "postgresql", "pg":
		return postgresDialect{}, nil
	case "sqlserver", "mssql":
		return sqlserverDialect{}, nil
	case "oracle":
		return oracleDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported db driver %q", driver)
}

// Drivers lists the accepted driver names.
func Drivers() []string { return []string{"sqlite", "mysql", "postgres", "sqlserver", "oracle"} }

var (
	_ Dialect = sqliteDialect{}
	_ Dialect = mysqlDialect{}
	_ Dialect = postgresDialect{}
	_ Dialect = sqlserverDialect{}
	_ Dialect = oracleDialect{}
)

// generatePlaceholders joins count placeholders produced by ph.
func generatePlaceholders(count int, ph func(int) string) string {
	out := make([]string, count)
	for i := range out {
		out[i] = ph(i)
	}
	return strings.Join(out, ", ")
}

// createTableSQL declares every column with the dialect's text type.
func createTableSQL(d Dialect, table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = d.QuoteIdent(c) + " " + d.TextType()
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdent(table), strings.Join(defs, ", "))
}

func insertSQL(d Dialect, table string, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quoted, ", "), generatePlaceholders(len(cols), d.Placeholder))
}

// quoteWith wraps name in open/close, doubling any embedded close character.
func quoteWith(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// likePattern builds a '!'-escaped substring pattern for LikeExpr.
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(s) + "%"
}
