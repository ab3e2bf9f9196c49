package handlers

import (
	"github.com/gin-gonic/gin"
)

// Store is everything the API needs from the database.
type Store interface {
	EntityStore
	FilterStore
}

// Register mounts the inventory and saved filter endpoints on api.
func Register(api gin.IRouter, store Store, listing Listing) {
	api.GET("/entities/:type", ListEntities(store, listing))
	api.POST("/entities/:type", IngestEntities(store))

	api.GET("/filters", ListSavedFilters(store))
	api.POST("/filters", CreateSavedFilter(store))
	api.GET("/filters/:id", GetSavedFilter(store))
	api.PUT("/filters/:id", UpdateSavedFilter(store))
	api.DELETE("/filters/:id", DeleteSavedFilter(store))
	api.GET("/filters/:id/entities", ListSavedFilterEntities(store, store, listing))
}
