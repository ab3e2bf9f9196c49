package database

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/filter"
	"vigil/models"
)

func TestApplyFilter(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		filter     string
		wantWhere  string
		wantArgs   []interface{}
		wantSearch string
	}{
		{
			name:      "reserved keywords ignored",
			filter:    "first=11 rows=10 sort=name",
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name:      "text equality and approx",
			filter:    `status="Fix Verified" name~web`,
			wantWhere: "WHERE status = $1 AND name ILIKE $2",
			wantArgs:  []interface{}{"Fix Verified", "%web%"},
		},
		{
			name:      "numeric comparison",
			filter:    "severity>=7.5 severity<10",
			wantWhere: "WHERE severity >= $1 AND severity < $2",
			wantArgs:  []interface{}{7.5, 10.0},
		},
		{
			name:      "date comparison",
			filter:    "modified>2024-11-01",
			wantWhere: "WHERE modified_at > $1",
			wantArgs:  []interface{}{time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:      "uuid",
			filter:    "uuid=" + id.String(),
			wantWhere: "WHERE id = $1",
			wantArgs:  []interface{}{id},
		},
		{
			name:      "tags",
			filter:    "tag=dmz tag~prod",
			wantWhere: "WHERE $1 = ANY(tags) AND EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE $2)",
			wantArgs:  []interface{}{"dmz", "%prod%"},
		},
		{
			name:       "bare words become full-text search",
			filter:     "Web owner=admin Servers",
			wantWhere:  "WHERE owner = $1 AND to_tsvector('english', name || ' ' || comment) @@ to_tsquery('english', $2)",
			wantArgs:   []interface{}{"admin", "web & servers"},
			wantSearch: "web & servers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qb := NewQueryBuilder()
			search, err := applyFilter(qb, filter.Parse(tt.filter))

			require.NoError(t, err)
			assert.Equal(t, tt.wantWhere, qb.WhereClause())
			assert.Equal(t, tt.wantArgs, qb.Args())
			assert.Equal(t, tt.wantSearch, search)
		})
	}
}

func TestApplyFilter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		reason string
	}{
		{name: "unknown keyword", filter: "colour=red", reason: "unknown keyword"},
		{name: "non-numeric severity", filter: "severity>high", reason: "not a number"},
		{name: "approx on number", filter: "severity~5", reason: "approximate match"},
		{name: "bad date", filter: "created>yesterday", reason: "RFC3339"},
		{name: "uuid relation", filter: "uuid~abc", reason: "only ="},
		{name: "bad uuid", filter: "uuid=abc", reason: "not a UUID"},
		{name: "tag comparison", filter: "tag>a", reason: "only = and ~"},
		{name: "search words too short", filter: "a b", reason: "no valid search words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyFilter(NewQueryBuilder(), filter.Parse(tt.filter))

			var fe *FilterError
			require.True(t, errors.As(err, &fe), "expected *FilterError, got %v", err)
			assert.Contains(t, fe.Reason, tt.reason)
		})
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		ranked   bool
		expected string
		wantErr  bool
	}{
		{
			name:     "default",
			filter:   "",
			expected: "ORDER BY name ASC, id ASC",
		},
		{
			name:     "default with search",
			filter:   "",
			ranked:   true,
			expected: "ORDER BY rank DESC, name ASC, id ASC",
		},
		{
			name:     "sort",
			filter:   "sort=severity",
			expected: "ORDER BY severity ASC NULLS LAST, id ASC",
		},
		{
			name:     "sort reverse",
			filter:   "sort-reverse=modified",
			ranked:   true,
			expected: "ORDER BY modified_at DESC NULLS LAST, id ASC",
		},
		{
			name:    "unknown column",
			filter:  "sort=password",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := orderClause(filter.Parse(tt.filter), tt.ranked)
			if tt.wantErr {
				var fe *FilterError
				assert.True(t, errors.As(err, &fe))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, order)
		})
	}
}

func TestPageWindow(t *testing.T) {
	opts := ListOptions{DefaultRows: 10, MaxRows: 100}

	tests := []struct {
		name      string
		filter    string
		wantFirst int
		wantRows  int
	}{
		{name: "defaults", filter: "", wantFirst: 1, wantRows: 10},
		{name: "explicit", filter: "first=21 rows=20", wantFirst: 21, wantRows: 20},
		{name: "capped", filter: "rows=5000", wantFirst: 1, wantRows: 100},
		{name: "all", filter: "rows=-1", wantFirst: 1, wantRows: filter.RowsAll},
		{name: "invalid", filter: "first=x rows=y", wantFirst: 1, wantRows: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, rows := pageWindow(filter.Parse(tt.filter), opts)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestBuildListQuery(t *testing.T) {
	opts := ListOptions{DefaultRows: 10, MaxRows: 100}

	q, err := buildListQuery(models.EntityTask, filter.Parse("status=Done first=21 rows=10"), opts)
	require.NoError(t, err)

	assert.Contains(t, q.sql, "WHERE entity_type = $1 AND status = $2")
	assert.Contains(t, q.sql, "ORDER BY name ASC, id ASC")
	assert.Contains(t, q.sql, "LIMIT $3 OFFSET $4")
	assert.Contains(t, q.sql, "COUNT(*) OVER()")
	assert.NotContains(t, q.sql, "ts_rank")
	assert.Equal(t, []interface{}{"task", "Done", 10, 20}, q.args)
	assert.Equal(t, "SELECT COUNT(*) FROM entities WHERE entity_type = $1 AND status = $2", q.countSQL)
	assert.Equal(t, []interface{}{"task", "Done"}, q.countArgs)
	assert.Equal(t, 21, q.first)
	assert.Equal(t, 10, q.rows)
}

func TestBuildListQuery_AllRowsWithSearch(t *testing.T) {
	q, err := buildListQuery(models.EntityTarget, filter.Parse("webserver rows=-1"), DefaultListOptions())
	require.NoError(t, err)

	assert.Contains(t, q.sql, "ts_rank(to_tsvector('english', name || ' ' || comment), to_tsquery('english', $2)) AS rank")
	assert.Contains(t, q.sql, "ORDER BY rank DESC")
	assert.Contains(t, q.sql, "OFFSET $3")
	assert.NotContains(t, q.sql, "LIMIT")
	assert.Equal(t, []interface{}{"target", "webserver", 0}, q.args)
	assert.True(t, q.ranked)
	assert.Equal(t, filter.RowsAll, q.rows)
}

func TestBuildListQuery_Error(t *testing.T) {
	_, err := buildListQuery(models.EntityTarget, filter.Parse("sort=secret"), DefaultListOptions())

	var fe *FilterError
	assert.True(t, errors.As(err, &fe))
}
