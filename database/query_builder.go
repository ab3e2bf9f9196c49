package database

import (
	"fmt"
	"strings"
	"time"
)

const (
	columnID         = "id"
	columnType       = "entity_type"
	columnName       = "name"
	columnComment    = "comment"
	columnOwner      = "owner"
	columnStatus     = "status"
	columnSeverity   = "severity"
	columnTags       = "tags"
	columnCreatedAt  = "created_at"
	columnModifiedAt = "modified_at"
)

// searchDocument is the text indexed for full-text matching.
const searchDocument = "to_tsvector('english', " + columnName + " || ' ' || " + columnComment + ")"

// QueryBuilder helps build WHERE clauses safely
type QueryBuilder struct {
	conditions []string
	args       []interface{}
	argCount   int
}

func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		conditions: []string{},
		args:       []interface{}{},
		argCount:   1,
	}
}

func (qb *QueryBuilder) add(condition string, value interface{}) {
	qb.conditions = append(qb.conditions, condition)
	qb.args = append(qb.args, value)
	qb.argCount++
}

func (qb *QueryBuilder) AddCondition(column string, value interface{}) {
	qb.AddComparison(column, "=", value)
}

// AddComparison adds "column op $n". op must come from a fixed set of SQL
// operators, never from user input.
func (qb *QueryBuilder) AddComparison(column, op string, value interface{}) {
	qb.add(fmt.Sprintf("%s %s $%d", column, op, qb.argCount), value)
}

// AddApprox adds a case-insensitive substring match.
func (qb *QueryBuilder) AddApprox(column, value string) {
	qb.add(fmt.Sprintf("%s ILIKE $%d", column, qb.argCount), "%"+escapeLike(value)+"%")
}

// AddTagCondition matches entities carrying tag. With approx set, any tag
// containing the value matches.
func (qb *QueryBuilder) AddTagCondition(tag string, approx bool) {
	if approx {
		qb.add(fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS t WHERE t ILIKE $%d)", columnTags, qb.argCount),
			"%"+escapeLike(tag)+"%")
		return
	}
	qb.add(fmt.Sprintf("$%d = ANY(%s)", qb.argCount, columnTags), tag)
}

func (qb *QueryBuilder) AddFullTextSearch(searchQuery string) {
	qb.add(fmt.Sprintf("%s @@ to_tsquery('english', $%d)", searchDocument, qb.argCount), searchQuery)
}

func (qb *QueryBuilder) WhereClause() string {
	if len(qb.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(qb.conditions, " AND ")
}

func (qb *QueryBuilder) Args() []interface{} {
	return qb.args
}

func (qb *QueryBuilder) NextArgNum() int {
	return qb.argCount
}

// Helper functions

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseTimestamp accepts RFC3339 or a plain date.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := parseRFC3339(s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func validateLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func validateOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
