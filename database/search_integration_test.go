package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/filter"
	"vigil/models"
)

func seedSearchTargets(t *testing.T, db *DB) {
	t.Helper()

	now := time.Now().UTC()
	entities := []models.Entity{
		newEntity(models.EntityTarget, "web-frontend", now),
		newEntity(models.EntityTarget, "billing-db", now),
		newEntity(models.EntityTarget, "mail-relay", now),
	}
	entities[0].Comment = "Public web servers in the DMZ"
	entities[1].Comment = "Database servers for billing"
	entities[2].Comment = "Outbound mail relay in the DMZ"
	entities[2].Owner = "ops"
	require.NoError(t, db.InsertEntitiesBatch(context.Background(), entities))
}

func listTargets(t *testing.T, db *DB, f string) []models.Entity {
	t.Helper()

	results, _, _, err := db.ListEntities(context.Background(), models.EntityTarget, filter.Parse(f), DefaultListOptions())
	require.NoError(t, err)
	return results
}

func TestSearchEntities_Basic(t *testing.T) {
	db := GetTestDB(t)
	CleanupTestDB(t, db)
	seedSearchTargets(t, db)

	results := listTargets(t, db, "database")
	require.Len(t, results, 1)
	assert.Equal(t, "billing-db", results[0].Name)
	assert.NotNil(t, results[0].Rank)
}

func TestSearchEntities_MultipleWords(t *testing.T) {
	db := GetTestDB(t)
	CleanupTestDB(t, db)
	seedSearchTargets(t, db)

	results := listTargets(t, db, "dmz servers")
	require.Len(t, results, 1)
	assert.Equal(t, "web-frontend", results[0].Name)
}

func TestSearchEntities_WithTerms(t *testing.T) {
	db := GetTestDB(t)
	CleanupTestDB(t, db)
	seedSearchTargets(t, db)

	results := listTargets(t, db, "dmz owner=ops")
	require.Len(t, results, 1)
	assert.Equal(t, "mail-relay", results[0].Name)

	results = listTargets(t, db, "owner=admin")
	assert.Len(t, results, 2)
	for _, e := range results {
		assert.Nil(t, e.Rank)
	}
}

func TestSearchEntities_OnlyShortWords(t *testing.T) {
	db := GetTestDB(t)
	CleanupTestDB(t, db)

	_, _, _, err := db.ListEntities(context.Background(), models.EntityTarget, filter.Parse("a b"), DefaultListOptions())

	var fe *FilterError
	assert.True(t, errors.As(err, &fe))
}

func TestSearchEntities_Ranking(t *testing.T) {
	db := GetTestDB(t)
	CleanupTestDB(t, db)

	now := time.Now().UTC()
	low := newEntity(models.EntityTarget, "scanner-a", now)
	low.Comment = "relay"
	high := newEntity(models.EntityTarget, "scanner-b", now)
	high.Comment = "relay relay relay"
	require.NoError(t, db.InsertEntitiesBatch(context.Background(), []models.Entity{low, high}))

	results := listTargets(t, db, "relay")
	require.Len(t, results, 2)
	assert.Equal(t, "scanner-b", results[0].Name)
	assert.Greater(t, *results[0].Rank, *results[1].Rank)
}
