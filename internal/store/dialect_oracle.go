package store

import (
	"fmt"

	_ "github.com/sijms/go-ora/v2" // Oracle driver
)

type oracleDialect struct{}

func (oracleDialect) Name() string       { return "oracle" }
func (oracleDialect) DriverName() string { return "oracle" }

// USER_TABLES lists tables owned by the connected user.
func (oracleDialect) ListTablesQuery() string {
	return `SELECT TABLE_NAME FROM USER_TABLES ORDER BY TABLE_NAME`
}

func (oracleDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME FROM USER_TAB_COLUMNS WHERE TABLE_NAME = :1 ORDER BY COLUMN_ID`
}

func (oracleDialect) QuoteIdent(name string) string { return quoteWith(name, `"`, `"`) }

func (oracleDialect) Placeholder(index int) string { return fmt.Sprintf(":%d", index+1) }

// CLOB columns cannot be grouped or compared with LIKE cheaply.
func (oracleDialect) TextType() string { return "VARCHAR2(4000)" }

func (d oracleDialect) CreateTable(table string, cols []string) string {
	return createTableSQL(d, table, cols)
}

// OFFSET/FETCH needs Oracle 12c or later.
func (oracleDialect) Paginate(query string, limit, offset int) string {
	return fmt.Sprintf("%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", query, offset, limit)
}

func (d oracleDialect) LikeExpr(column string, index int) string {
	return fmt.Sprintf("%s LIKE %s ESCAPE '!'", d.QuoteIdent(column), d.Placeholder(index))
}
