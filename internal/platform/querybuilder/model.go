package querybuilder

import (
	"errors"
	"reflect"
	"strings"
)

// InsertModel builds an INSERT from the exported `db`-tagged fields of a
// struct row model, in field order.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	v := reflect.Indirect(reflect.ValueOf(model))
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return "", nil, errors.New("insert model must be a non-nil struct")
	}

	var (
		cols []string
		vals []any
	)
	for _, field := range reflect.VisibleFields(v.Type()) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}
		cols = append(cols, name)
		vals = append(vals, v.FieldByIndex(field.Index).Interface())
	}
	if len(cols) == 0 {
		return "", nil, errors.New("insert model has no db columns")
	}

	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}
