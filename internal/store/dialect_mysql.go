package store

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) ListTablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (mysqlDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
}

func (mysqlDialect) QuoteIdent(name string) string { return quoteWith(name, "`", "`") }
func (mysqlDialect) Placeholder(int) string        { return "?" }
func (mysqlDialect) TextType() string              { return "TEXT" }

func (d mysqlDialect) CreateTable(table string, cols []string) string {
	return createTableSQL(d, table, cols) + " DEFAULT CHARSET=utf8mb4"
}

func (mysqlDialect) Paginate(query string, limit, offset int) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, limit, offset)
}

func (d mysqlDialect) LikeExpr(column string, index int) string {
	return fmt.Sprintf("CAST(%s AS CHAR) LIKE %s ESCAPE '!'", d.QuoteIdent(column), d.Placeholder(index))
}
