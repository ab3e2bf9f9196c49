package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"vigil/filter"
	"vigil/models"
)

const savedFilterColumns = "id, name, entity_type, term, comment, created_at, updated_at"

// CreateSavedFilter stores a named filter. The term is stored in canonical
// form so equal filters persist as equal strings.
func (db *DB) CreateSavedFilter(ctx context.Context, name string, entityType models.EntityType, term, comment string) (*models.SavedFilter, error) {
	query := `
		INSERT INTO saved_filters (id, name, entity_type, term, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + savedFilterColumns

	sf, err := scanSavedFilter(db.Pool.QueryRow(ctx, query,
		uuid.New(), name, string(entityType), filter.Parse(term).String(), comment))
	if err != nil {
		return nil, fmt.Errorf("failed to create saved filter: %w", err)
	}

	log.WithFields(log.Fields{"id": sf.ID, "name": sf.Name, "type": sf.EntityType}).Info("created saved filter")
	return sf, nil
}

// ListSavedFilters lists saved filters, optionally restricted to one entity
// type (empty means all).
func (db *DB) ListSavedFilters(ctx context.Context, entityType models.EntityType) ([]models.SavedFilter, error) {
	qb := NewQueryBuilder()
	if entityType != "" {
		qb.AddCondition(columnType, string(entityType))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM saved_filters
		%s
		ORDER BY name ASC, created_at DESC
	`, savedFilterColumns, qb.WhereClause())

	rows, err := db.Pool.Query(ctx, query, qb.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved filters: %w", err)
	}
	defer rows.Close()

	return scanSavedFilters(rows)
}

func (db *DB) GetSavedFilter(ctx context.Context, id uuid.UUID) (*models.SavedFilter, error) {
	query := `SELECT ` + savedFilterColumns + ` FROM saved_filters WHERE id = $1`

	sf, err := scanSavedFilter(db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("saved filter %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get saved filter: %w", err)
	}

	return sf, nil
}

// UpdateSavedFilter changes the non-nil fields of req.
func (db *DB) UpdateSavedFilter(ctx context.Context, id uuid.UUID, req models.UpdateSavedFilterRequest) (*models.SavedFilter, error) {
	var term *string
	if req.Term != nil {
		canonical := filter.Parse(*req.Term).String()
		term = &canonical
	}

	query := `
		UPDATE saved_filters
		SET name = COALESCE($2, name),
			term = COALESCE($3, term),
			comment = COALESCE($4, comment),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + savedFilterColumns

	sf, err := scanSavedFilter(db.Pool.QueryRow(ctx, query, id, req.Name, term, req.Comment))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("saved filter %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update saved filter: %w", err)
	}

	log.WithFields(log.Fields{"id": sf.ID, "term": sf.Term}).Info("updated saved filter")
	return sf, nil
}

func (db *DB) DeleteSavedFilter(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM saved_filters WHERE id = $1`

	result, err := db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved filter: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("saved filter %s: %w", id, ErrNotFound)
	}

	log.WithField("id", id).Info("deleted saved filter")
	return nil
}

// Helper functions

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedFilter(row rowScanner) (*models.SavedFilter, error) {
	var sf models.SavedFilter
	var entityType string
	err := row.Scan(
		&sf.ID,
		&sf.Name,
		&entityType,
		&sf.Term,
		&sf.Comment,
		&sf.CreatedAt,
		&sf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sf.EntityType = models.EntityType(entityType)
	return &sf, nil
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanSavedFilters(rows rowsScanner) ([]models.SavedFilter, error) {
	filters := []models.SavedFilter{}
	for rows.Next() {
		sf, err := scanSavedFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved filter: %w", err)
		}
		filters = append(filters, *sf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved filters: %w", err)
	}

	return filters, nil
}
