package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"vigil/filter"
	"vigil/models"
)

// BatchInsertError indicates which entity failed during batch insert.
// Contains the index of the failed entity and the total batch size for debugging.
type BatchInsertError struct {
	FailedIndex int
	Total       int
	Err         error
}

func (e *BatchInsertError) Error() string {
	return fmt.Sprintf("failed to insert entity at index %d/%d: %v", e.FailedIndex, e.Total, e.Err)
}

func (e *BatchInsertError) Unwrap() error {
	return e.Err
}

// InsertEntitiesBatch inserts entities using pgx batching.
// All entities are sent in a single network round-trip.
// If any entity fails, returns BatchInsertError indicating which one.
// Empty slice is a no-op and returns nil.
func (db *DB) InsertEntitiesBatch(ctx context.Context, entities []models.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		log.WithFields(log.Fields{
			"duration": time.Since(start),
			"count":    len(entities),
		}).Debug("InsertEntitiesBatch")
	}()

	query := `
		INSERT INTO entities (id, entity_type, name, comment, owner, status, severity, tags, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	for _, e := range entities {
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(query, e.ID, string(e.Type), e.Name, e.Comment, e.Owner, e.Status,
			e.Severity, tags, e.CreatedAt, e.ModifiedAt)
	}

	results := db.Pool.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()

	for i := 0; i < len(entities); i++ {
		_, err := results.Exec()
		if err != nil {
			return &BatchInsertError{
				FailedIndex: i,
				Total:       len(entities),
				Err:         err,
			}
		}
	}

	return nil
}

// ListEntities runs filter f against one entity type.
// Uses COUNT(*) OVER() to get the filtered total in the same query and a
// plain count when the requested page lies past the end of the results.
//
// Returns the page, its CollectionCounts, and the effective filter: f with
// first and rows set to the values actually used, so callers can navigate
// from it directly. Terms the inventory cannot execute yield a *FilterError.
//
// Returns empty slice (not nil) if nothing matches.
func (db *DB) ListEntities(ctx context.Context, entityType models.EntityType, f filter.Filter, opts ListOptions) ([]models.Entity, filter.CollectionCounts, filter.Filter, error) {
	start := time.Now()
	defer func() {
		log.WithFields(log.Fields{
			"duration": time.Since(start),
			"type":     entityType,
			"filter":   f.String(),
		}).Debug("ListEntities")
	}()

	q, err := buildListQuery(entityType, f, opts)
	if err != nil {
		return nil, filter.CollectionCounts{}, f, err
	}

	rows, err := db.Pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, filter.CollectionCounts{}, f, fmt.Errorf("failed to list entities: %w", err)
	}
	entities, filtered, err := scanEntities(rows, q.ranked)
	rows.Close()
	if err != nil {
		return nil, filter.CollectionCounts{}, f, err
	}

	if len(entities) == 0 && q.first > 1 {
		if err := db.Pool.QueryRow(ctx, q.countSQL, q.countArgs...).Scan(&filtered); err != nil {
			return nil, filter.CollectionCounts{}, f, fmt.Errorf("failed to count entities: %w", err)
		}
	}

	all, err := db.CountEntities(ctx, entityType)
	if err != nil {
		return nil, filter.CollectionCounts{}, f, err
	}

	counts := filter.NewCollectionCounts(filter.Counts{
		First:    q.first,
		All:      int(all),
		Filtered: int(filtered),
		Length:   len(entities),
		Rows:     q.rows,
	})
	effective := f.SetInt(filter.KeywordFirst, q.first).SetInt(filter.KeywordRows, q.rows)

	return entities, counts, effective, nil
}

// CountEntities returns the unfiltered number of entities of a type.
func (db *DB) CountEntities(ctx context.Context, entityType models.EntityType) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM entities WHERE %s = $1", columnType)
	if err := db.Pool.QueryRow(ctx, query, string(entityType)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return n, nil
}

// Helper functions

func scanEntity(row rowScanner, ranked bool) (*models.Entity, int64, error) {
	var e models.Entity
	var entityType string
	var total int64

	dest := []interface{}{
		&e.ID, &entityType, &e.Name, &e.Comment, &e.Owner, &e.Status,
		&e.Severity, &e.Tags, &e.CreatedAt, &e.ModifiedAt,
	}
	if ranked {
		var rank float64
		dest = append(dest, &rank)
		e.Rank = &rank
	}
	dest = append(dest, &total)

	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}
	e.Type = models.EntityType(entityType)

	return &e, total, nil
}

func scanEntities(rows rowsScanner, ranked bool) ([]models.Entity, int64, error) {
	entities := []models.Entity{}
	var total int64

	for rows.Next() {
		e, t, err := scanEntity(rows, ranked)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan entity: %w", err)
		}
		total = t
		entities = append(entities, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating entities: %w", err)
	}

	return entities, total, nil
}
