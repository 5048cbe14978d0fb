package data

import (
	"fmt"
	"time"
)

type SortOrder string

const (
	ASC  SortOrder = "ASC"
	DESC SortOrder = "DESC"
)

func (o SortOrder) IsValid() bool {
	return o == ASC || o == DESC
}

// PageCursor is the decoded keyset position of a listing row, ordered
// by (created_at, id) as the strict total order for pagination.
type PageCursor struct {
	CreatedAt time.Time
	ID        string
}

// buildCursorCondition expands the (created_at, id) tuple comparison
// into OR clauses so the planner can use the partial listing index on
// both columns. Returns the SQL fragment, its args and the next
// placeholder index.
func buildCursorCondition(column, tieBreak string, cursor PageCursor, sortOrder SortOrder, argIndex int) (string, []interface{}, int) {
	op := ">"
	if sortOrder == DESC {
		op = "<"
	}
	clause := fmt.Sprintf("(%[1]s %[3]s $%[4]d OR (%[1]s = $%[4]d AND %[2]s %[3]s $%[5]d))",
		column, tieBreak, op, argIndex, argIndex+1)
	return clause, []interface{}{cursor.CreatedAt, cursor.ID}, argIndex + 2
}
