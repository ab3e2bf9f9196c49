package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vigil/filter"
	"vigil/models"
)

// FilterStore is the saved filter half of *database.DB.
type FilterStore interface {
	CreateSavedFilter(ctx context.Context, name string, entityType models.EntityType, term, comment string) (*models.SavedFilter, error)
	ListSavedFilters(ctx context.Context, entityType models.EntityType) ([]models.SavedFilter, error)
	GetSavedFilter(ctx context.Context, id uuid.UUID) (*models.SavedFilter, error)
	UpdateSavedFilter(ctx context.Context, id uuid.UUID, req models.UpdateSavedFilterRequest) (*models.SavedFilter, error)
	DeleteSavedFilter(ctx context.Context, id uuid.UUID) error
}

func CreateSavedFilter(store FilterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateSavedFilterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		entityType, err := models.ParseEntityType(req.EntityType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		log.WithFields(log.Fields{"name": req.Name, "type": entityType}).Debug("creating saved filter")

		sf, err := store.CreateSavedFilter(c.Request.Context(), req.Name, entityType, req.Term, req.Comment)
		if err != nil {
			abortWithError(c, err, "failed to create saved filter")
			return
		}

		c.JSON(http.StatusCreated, sf)
	}
}

// ListSavedFilters lists saved filters, restricted to ?type= when given.
func ListSavedFilters(store FilterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var entityType models.EntityType
		if raw := c.Query("type"); raw != "" {
			t, err := models.ParseEntityType(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			entityType = t
		}

		filters, err := store.ListSavedFilters(c.Request.Context(), entityType)
		if err != nil {
			abortWithError(c, err, "failed to list saved filters")
			return
		}

		c.JSON(http.StatusOK, models.SavedFiltersResponse{
			Filters: filters,
			Total:   len(filters),
		})
	}
}

func GetSavedFilter(store FilterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := filterIDParam(c)
		if !ok {
			return
		}

		sf, err := store.GetSavedFilter(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err, "failed to get saved filter")
			return
		}

		c.JSON(http.StatusOK, sf)
	}
}

func UpdateSavedFilter(store FilterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := filterIDParam(c)
		if !ok {
			return
		}

		var req models.UpdateSavedFilterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sf, err := store.UpdateSavedFilter(c.Request.Context(), id, req)
		if err != nil {
			abortWithError(c, err, "failed to update saved filter")
			return
		}

		c.JSON(http.StatusOK, sf)
	}
}

func DeleteSavedFilter(store FilterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := filterIDParam(c)
		if !ok {
			return
		}

		if err := store.DeleteSavedFilter(c.Request.Context(), id); err != nil {
			abortWithError(c, err, "failed to delete saved filter")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "saved filter deleted"})
	}
}

// ListSavedFilterEntities runs a saved filter. Keywords in ?filter= override
// the saved ones, which in turn override the configured default for the type.
func ListSavedFilterEntities(filters FilterStore, entities EntityStore, listing Listing) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := filterIDParam(c)
		if !ok {
			return
		}

		sf, err := filters.GetSavedFilter(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err, "failed to get saved filter")
			return
		}

		f := listing.baseFilter(sf.EntityType).
			MergeKeywords(filter.Parse(sf.Term)).
			MergeKeywords(filter.Parse(c.Query("filter")))
		respondList(c, entities, listing, sf.EntityType, f)
	}
}

func filterIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter ID"})
		return uuid.Nil, false
	}
	return id, true
}
