package store

import (
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
)

// go-mssqldb binds @p1, @p2 positionally.
type sqlserverDialect struct{}

func (sqlserverDialect) Name() string       { return "sqlserver" }
func (sqlserverDialect) DriverName() string { return "sqlserver" }

func (sqlserverDialect) ListTablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = SCHEMA_NAME() ORDER BY TABLE_NAME`
}

func (sqlserverDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`
}

func (sqlserverDialect) QuoteIdent(name string) string { return quoteWith(name, "[", "]") }

func (sqlserverDialect) Placeholder(index int) string { return fmt.Sprintf("@p%d", index+1) }

// NVARCHAR(MAX) cannot be grouped, which value counts need.
func (sqlserverDialect) TextType() string { return "NVARCHAR(4000)" }

func (d sqlserverDialect) CreateTable(table string, cols []string) string {
	return createTableSQL(d, table, cols)
}

// OFFSET/FETCH requires an ORDER BY; the query must not carry one.
func (sqlserverDialect) Paginate(query string, limit, offset int) string {
	return fmt.Sprintf("%s ORDER BY (SELECT NULL) OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", query, offset, limit)
}

func (d sqlserverDialect) LikeExpr(column string, index int) string {
	return fmt.Sprintf("CAST(%s AS NVARCHAR(4000)) LIKE %s ESCAPE '!'", d.QuoteIdent(column), d.Placeholder(index))
}
