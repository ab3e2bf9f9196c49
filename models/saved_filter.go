package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedFilter is a named filter string bound to one entity type.
// Term always holds the canonical serialization of the filter.
type SavedFilter struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	Term       string     `json:"term" db:"term"`
	Comment    string     `json:"comment" db:"comment"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateSavedFilterRequest is the payload for creating a saved filter.
// Name is validated to be 1-255 characters.
type CreateSavedFilterRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=255"`
	EntityType string `json:"entity_type" binding:"required"`
	Term       string `json:"term"`
	Comment    string `json:"comment"`
}

// UpdateSavedFilterRequest replaces the mutable fields of a saved filter.
// Nil fields are left unchanged.
type UpdateSavedFilterRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=255"`
	Term    *string `json:"term"`
	Comment *string `json:"comment"`
}

// SavedFiltersResponse is the response format for saved filter listings.
type SavedFiltersResponse struct {
	Filters []SavedFilter `json:"filters"`
	Total   int           `json:"total"`
}
