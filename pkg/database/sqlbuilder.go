package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Excluded references the row proposed for insertion in an ON CONFLICT clause
func Excluded(column string) string {
	return fmt.Sprintf("%s = EXCLUDED.%s", column, column)
}

// Upsert builds a postgres INSERT ... ON CONFLICT DO UPDATE statement that overwrites
// updateCols with the proposed values
func Upsert(table string, cols []string, conflict []string, updateCols []string, rows ...[]any) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table).Cols(cols...)
	for _, row := range rows {
		ib.Values(row...)
	}

	sets := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		sets = append(sets, Excluded(col))
	}
	if len(sets) == 0 {
		ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(conflict, ", ")))
	} else {
		ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(sets, ", ")))
	}
	return ib.Build()
}
