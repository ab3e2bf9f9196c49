package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vigil/database"
	"vigil/filter"
	"vigil/models"
	"vigil/paging"
)

// EntityStore is the part of *database.DB the entity endpoints use.
type EntityStore interface {
	InsertEntitiesBatch(ctx context.Context, entities []models.Entity) error
	ListEntities(ctx context.Context, entityType models.EntityType, f filter.Filter, opts database.ListOptions) ([]models.Entity, filter.CollectionCounts, filter.Filter, error)
}

// Listing holds the paging limits and per-type default filters applied to
// every list request.
type Listing struct {
	Options  database.ListOptions
	Defaults map[models.EntityType]filter.Filter
}

// baseFilter is the configured default filter for t, empty when none is set.
func (l Listing) baseFilter(t models.EntityType) filter.Filter {
	return l.Defaults[t]
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// IngestEntities stores a JSON array of entities under the type in the path.
// Missing ids and timestamps are filled in.
func IngestEntities(store EntityStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, ok := entityTypeParam(c)
		if !ok {
			return
		}

		var entities []models.Entity
		if err := c.ShouldBindJSON(&entities); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		now := time.Now().UTC()
		for i := range entities {
			entities[i].Type = entityType
			if entities[i].ID == uuid.Nil {
				entities[i].ID = uuid.New()
			}
			if entities[i].CreatedAt.IsZero() {
				entities[i].CreatedAt = now
			}
			if entities[i].ModifiedAt.IsZero() {
				entities[i].ModifiedAt = entities[i].CreatedAt
			}
		}

		if err := store.InsertEntitiesBatch(c.Request.Context(), entities); err != nil {
			var batchErr *database.BatchInsertError
			if errors.As(err, &batchErr) {
				log.WithError(err).WithField("index", batchErr.FailedIndex).Warn("ingest rejected")
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "index": batchErr.FailedIndex})
				return
			}
			abortWithError(c, err, "failed to store entities")
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "entities stored",
			"count":   len(entities),
		})
	}
}

// ListEntities answers GET /entities/:type. The request filter is merged over
// the configured default filter for the type.
func ListEntities(store EntityStore, listing Listing) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, ok := entityTypeParam(c)
		if !ok {
			return
		}

		var params models.ListParams
		if err := c.ShouldBindQuery(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		f := listing.baseFilter(entityType).MergeKeywords(filter.Parse(params.Filter))
		respondList(c, store, listing, entityType, f)
	}
}

func respondList(c *gin.Context, store EntityStore, listing Listing, entityType models.EntityType, f filter.Filter) {
	entities, counts, effective, err := store.ListEntities(c.Request.Context(), entityType, f, listing.Options)
	if err != nil {
		abortWithError(c, err, "failed to list entities")
		return
	}

	c.JSON(http.StatusOK, models.ListResponse{
		Entities: entities,
		Counts:   counts,
		Filter:   effective.String(),
		Pages:    paging.Links(effective, counts),
	})
}

func entityTypeParam(c *gin.Context) (models.EntityType, bool) {
	entityType, err := models.ParseEntityType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return entityType, true
}

// abortWithError writes the status for a store error. Unexpected errors are
// logged and reported as msg.
func abortWithError(c *gin.Context, err error, msg string) {
	var filterErr *database.FilterError
	switch {
	case errors.As(err, &filterErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": filterErr.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
