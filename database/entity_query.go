package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vigil/filter"
	"vigil/models"
)

// FilterError reports a filter term the inventory cannot execute.
type FilterError struct {
	Term   string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter term %q: %s", e.Term, e.Reason)
}

func termError(t filter.Term, reason string) *FilterError {
	return &FilterError{Term: t.String(), Reason: reason}
}

type columnKind int

const (
	kindText columnKind = iota
	kindNumber
	kindTime
	kindUUID
	kindTags
)

type filterColumn struct {
	column string
	kind   columnKind
}

// filterColumns maps filter keywords to entity columns.
var filterColumns = map[string]filterColumn{
	"uuid":     {columnID, kindUUID},
	"name":     {columnName, kindText},
	"comment":  {columnComment, kindText},
	"owner":    {columnOwner, kindText},
	"status":   {columnStatus, kindText},
	"severity": {columnSeverity, kindNumber},
	"created":  {columnCreatedAt, kindTime},
	"modified": {columnModifiedAt, kindTime},
	"tag":      {columnTags, kindTags},
}

// sortColumns maps sort values to ORDER BY columns.
var sortColumns = map[string]string{
	"name":     columnName,
	"comment":  columnComment,
	"owner":    columnOwner,
	"status":   columnStatus,
	"severity": columnSeverity,
	"created":  columnCreatedAt,
	"modified": columnModifiedAt,
}

var comparisonOps = map[filter.Relation]string{
	filter.RelationEqual:          "=",
	filter.RelationLess:           "<",
	filter.RelationGreater:        ">",
	filter.RelationLessOrEqual:    "<=",
	filter.RelationGreaterOrEqual: ">=",
}

// ListOptions bounds the page size of list queries.
type ListOptions struct {
	DefaultRows int
	MaxRows     int
}

// DefaultListOptions returns the stock paging limits.
func DefaultListOptions() ListOptions {
	return ListOptions{
		DefaultRows: filter.DefaultRows,
		MaxRows:     1000,
	}
}

// listQuery is the SQL for one page of a filtered listing, plus the count
// query used when the page comes back empty.
type listQuery struct {
	sql       string
	args      []interface{}
	countSQL  string
	countArgs []interface{}
	ranked    bool
	first     int
	rows      int
}

// applyFilter adds a WHERE condition for every ordinary term of f. Bare
// words become one full-text condition, whose tsquery is returned ("" when
// the filter has no bare words).
func applyFilter(qb *QueryBuilder, f filter.Filter) (string, error) {
	var words []string

	for _, t := range f.Terms() {
		if filter.IsReserved(t.Keyword) {
			continue
		}
		if t.IsBare() {
			words = append(words, t.Keyword)
			continue
		}

		col, ok := filterColumns[t.Keyword]
		if !ok {
			return "", termError(t, "unknown keyword")
		}
		if err := addTermCondition(qb, col, t); err != nil {
			return "", err
		}
	}

	if len(words) == 0 {
		return "", nil
	}
	tsQuery, err := NewSearchQueryParser().Parse(strings.Join(words, " "))
	if err != nil {
		return "", &FilterError{Term: strings.Join(words, " "), Reason: err.Error()}
	}
	qb.AddFullTextSearch(tsQuery)
	return tsQuery, nil
}

func addTermCondition(qb *QueryBuilder, col filterColumn, t filter.Term) error {
	op, comparable := comparisonOps[t.Relation]
	approx := t.Relation == filter.RelationApprox

	switch col.kind {
	case kindText:
		if approx {
			qb.AddApprox(col.column, t.Value)
			return nil
		}
		qb.AddComparison(col.column, op, t.Value)

	case kindNumber:
		if !comparable {
			return termError(t, "approximate match not supported for numbers")
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
		if err != nil {
			return termError(t, "value is not a number")
		}
		qb.AddComparison(col.column, op, n)

	case kindTime:
		if !comparable {
			return termError(t, "approximate match not supported for dates")
		}
		ts, err := parseTimestamp(t.Value)
		if err != nil {
			return termError(t, "expected RFC3339 time or YYYY-MM-DD date")
		}
		qb.AddComparison(col.column, op, ts)

	case kindUUID:
		if t.Relation != filter.RelationEqual {
			return termError(t, "only = is supported")
		}
		id, err := uuid.Parse(t.Value)
		if err != nil {
			return termError(t, "value is not a UUID")
		}
		qb.AddCondition(col.column, id)

	case kindTags:
		if t.Relation != filter.RelationEqual && !approx {
			return termError(t, "only = and ~ are supported")
		}
		qb.AddTagCondition(t.Value, approx)
	}

	return nil
}

// orderClause builds ORDER BY from the sort slot. Without an explicit sort,
// full-text listings are ordered by rank and everything else by name.
func orderClause(f filter.Filter, ranked bool) (string, error) {
	field := f.SortField()
	if field == "" {
		if ranked {
			return "ORDER BY rank DESC, " + columnName + " ASC, " + columnID + " ASC", nil
		}
		return "ORDER BY " + columnName + " ASC, " + columnID + " ASC", nil
	}

	column, ok := sortColumns[field]
	if !ok {
		return "", &FilterError{Term: field, Reason: "unknown sort column"}
	}
	dir := "ASC"
	if f.SortReverse() {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s NULLS LAST, %s ASC", column, dir, columnID), nil
}

// pageWindow resolves first and rows against opts. rows is filter.RowsAll
// when the filter asks for every match.
func pageWindow(f filter.Filter, opts ListOptions) (int, int) {
	first := f.FirstIndex()
	rows := f.Rows()
	if rows != filter.RowsAll {
		rows = validateLimit(rows, opts.DefaultRows, opts.MaxRows)
	}
	return first, rows
}

func buildListQuery(entityType models.EntityType, f filter.Filter, opts ListOptions) (*listQuery, error) {
	qb := NewQueryBuilder()
	qb.AddCondition(columnType, string(entityType))

	tsQuery, err := applyFilter(qb, f)
	if err != nil {
		return nil, err
	}
	ranked := tsQuery != ""

	order, err := orderClause(f, ranked)
	if err != nil {
		return nil, err
	}

	first, rows := pageWindow(f, opts)
	where := qb.WhereClause()

	columns := strings.Join([]string{
		columnID, columnType, columnName, columnComment, columnOwner, columnStatus,
		columnSeverity, columnTags, columnCreatedAt, columnModifiedAt,
	}, ", ")
	if ranked {
		// the tsquery is the last argument added by applyFilter
		columns += fmt.Sprintf(", ts_rank(%s, to_tsquery('english', $%d)) AS rank", searchDocument, qb.NextArgNum()-1)
	}

	args := append([]interface{}{}, qb.Args()...)
	var window string
	if rows == filter.RowsAll {
		window = fmt.Sprintf("OFFSET $%d", qb.NextArgNum())
		args = append(args, validateOffset(first-1))
	} else {
		window = fmt.Sprintf("LIMIT $%d OFFSET $%d", qb.NextArgNum(), qb.NextArgNum()+1)
		args = append(args, rows, validateOffset(first-1))
	}

	// SAFETY: All user input is parameterized via $N placeholders.
	// where and order only contain whitelisted column names and SQL operators.
	sql := fmt.Sprintf(`
		SELECT
			%s,
			COUNT(*) OVER() AS total_count
		FROM entities
		%s
		%s
		%s
	`, columns, where, order, window)

	return &listQuery{
		sql:       sql,
		args:      args,
		countSQL:  "SELECT COUNT(*) FROM entities " + where,
		countArgs: qb.Args(),
		ranked:    ranked,
		first:     first,
		rows:      rows,
	}, nil
}
