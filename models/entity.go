package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vigil/filter"
	"vigil/paging"
)

// EntityType names one of the inventory collections the console lists.
type EntityType string

const (
	EntityTarget     EntityType = "target"
	EntityTask       EntityType = "task"
	EntityReport     EntityType = "report"
	EntityResult     EntityType = "result"
	EntityCredential EntityType = "credential"
	EntityScanner    EntityType = "scanner"
	EntitySchedule   EntityType = "schedule"
	EntityPortList   EntityType = "port_list"
	EntityAlert      EntityType = "alert"
)

// EntityTypes lists every known type.
var EntityTypes = []EntityType{
	EntityTarget,
	EntityTask,
	EntityReport,
	EntityResult,
	EntityCredential,
	EntityScanner,
	EntitySchedule,
	EntityPortList,
	EntityAlert,
}

func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType accepts the singular name or its plural ("targets").
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if t.Valid() {
		return t, nil
	}
	if n := len(s); n > 1 && s[n-1] == 's' {
		if t = EntityType(s[:n-1]); t.Valid() {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Entity is one inventory item: a target, task, report and so on.
type Entity struct {
	ID         uuid.UUID  `json:"id"`
	Type       EntityType `json:"type"`
	Name       string     `json:"name" binding:"required"`
	Comment    string     `json:"comment"`
	Owner      string     `json:"owner"`
	Status     string     `json:"status"`
	Severity   *float64   `json:"severity,omitempty"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	Rank       *float64   `json:"rank,omitempty"` // Only populated for full-text matches
}

// ListParams is the query string of a list request.
type ListParams struct {
	Filter string `form:"filter"`
}

// ListResponse is one page of entities with the counts and the effective
// filter that produced it.
type ListResponse struct {
	Entities []Entity                `json:"entities"`
	Counts   filter.CollectionCounts `json:"counts"`
	Filter   string                  `json:"filter"`
	Pages    paging.PageLinks        `json:"pages"`
}
