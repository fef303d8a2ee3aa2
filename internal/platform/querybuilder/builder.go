// Package querybuilder renders the small set of postgres statements the
// repositories need, numbering placeholders in argument order.
package querybuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Condition is one predicate of a WHERE clause. Predicates are joined with AND.
type Condition struct {
	column  string
	op      string
	value   any
	literal bool
}

// Eq binds value as a placeholder argument.
func Eq(column string, value any) Condition {
	return Condition{column: column, op: "=", value: value}
}

// Ne binds value as a placeholder argument.
func Ne(column string, value any) Condition {
	return Condition{column: column, op: "<>", value: value}
}

// EqLiteral inlines value as a quoted SQL literal. Use it only for enum
// values owned by the code, so partial indexes on them stay usable.
func EqLiteral(column, value string) Condition {
	return Condition{column: column, op: "=", value: value, literal: true}
}

type statement struct {
	buf  strings.Builder
	args []any
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.buf.WriteString(p)
	}
}

func (s *statement) bind(value any) {
	s.args = append(s.args, value)
	s.write("$", strconv.Itoa(len(s.args)))
}

func (s *statement) where(conds []Condition) {
	for i, c := range conds {
		if i == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}
		s.write(c.column, " ", c.op, " ")
		if c.literal {
			s.write("'", strings.ReplaceAll(c.value.(string), "'", "''"), "'")
			continue
		}
		s.bind(c.value)
	}
}

func (s *statement) suffix(sql string) {
	if sql != "" {
		s.write(" ", sql)
	}
}

func (s *statement) result() (string, []any, error) {
	return s.buf.String(), s.args, nil
}

type SelectBuilder struct {
	columns []string
	table   string
	conds   []Condition
	orderBy []string
	tail    string
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

// Suffix appends a trailing clause such as "FOR UPDATE".
func (b *SelectBuilder) Suffix(sql string) *SelectBuilder {
	b.tail = strings.TrimSpace(sql)
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 || strings.TrimSpace(b.table) == "" {
		return "", nil, errors.New("select needs columns and a table")
	}

	var s statement
	s.write("SELECT ", strings.Join(b.columns, ", "), " FROM ", b.table)
	s.where(b.conds)
	if len(b.orderBy) > 0 {
		s.write(" ORDER BY ", strings.Join(b.orderBy, ", "))
	}
	s.suffix(b.tail)
	return s.result()
}

type InsertBuilder struct {
	table   string
	columns []string
	values  []any
	tail    string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.values = append([]any(nil), values...)
	return b
}

// Suffix appends a trailing clause such as "ON CONFLICT DO NOTHING".
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.tail = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" || len(b.columns) == 0 {
		return "", nil, errors.New("insert needs a table and columns")
	}
	if len(b.values) != len(b.columns) {
		return "", nil, fmt.Errorf("insert has %d values for %d columns", len(b.values), len(b.columns))
	}

	var s statement
	s.write("INSERT INTO ", b.table, " (", strings.Join(b.columns, ", "), ") VALUES (")
	for i, v := range b.values {
		if i > 0 {
			s.write(", ")
		}
		s.bind(v)
	}
	s.write(")")
	s.suffix(b.tail)
	return s.result()
}

type assignment struct {
	column string
	value  any
}

type UpdateBuilder struct {
	table string
	sets  []assignment
	conds []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, value: value})
	return b
}

func (b *UpdateBuilder) Where(conds ...Condition) *UpdateBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" || len(b.sets) == 0 {
		return "", nil, errors.New("update needs a table and at least one column")
	}
	if len(b.conds) == 0 {
		return "", nil, errors.New("update without where clause is not allowed")
	}

	var s statement
	s.write("UPDATE ", b.table, " SET ")
	for i, a := range b.sets {
		if i > 0 {
			s.write(", ")
		}
		s.write(a.column, " = ")
		s.bind(a.value)
	}
	s.where(b.conds)
	return s.result()
}

type DeleteBuilder struct {
	table string
	conds []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conds ...Condition) *DeleteBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, errors.New("delete needs a table")
	}
	if len(b.conds) == 0 {
		return "", nil, errors.New("delete without where clause is not allowed")
	}

	var s statement
	s.write("DELETE FROM ", b.table)
	s.where(b.conds)
	return s.result()
}
