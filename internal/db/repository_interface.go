package db

import (
	"time"

	"github.com/kimhsiao/toodle/internal/models"
)

// ItemRepository defines operations for item persistence.
type ItemRepository interface {
	// CreateAndFetchItem creates an item with a fresh UUID and reads it back.
	CreateAndFetchItem(name string, due *time.Time) (*models.Item, error)

	// FetchItem retrieves an item by UUID.
	FetchItem(id models.UUID) (*models.Item, error)

	// FetchItems returns every item.
	FetchItems() ([]models.Item, error)

	// UpdateItem writes an item's fields and labels by UUID.
	UpdateItem(item *models.Item) error

	// UpdateItemByUUID writes name and dates by UUID.
	UpdateItemByUUID(id models.UUID, name string, due, completion *time.Time) error

	// UpsertItem stores an item as-is.
	UpsertItem(item *models.Item) error
}

// LabelRepository defines operations for label persistence.
type LabelRepository interface {
	CreateLabel(label *models.Label) error
	UpsertLabel(label models.Label) error
	FetchLabels() ([]models.Label, error)
}

// CategoryRepository defines operations for category persistence.
type CategoryRepository interface {
	SaveCategory(cat *models.Category) error
	FetchCategories() ([]models.Category, error)
}

// ConflictLogRepository defines operations for conflict log persistence.
type ConflictLogRepository interface {
	CreateConflictLog(log *models.ConflictLog) error
}

// SyncRepository combines repositories needed for sync operations.
type SyncRepository interface {
	ItemRepository
	LabelRepository
	ConflictLogRepository
}

// Ensure *Repository implements the interfaces at compile time.
var (
	_ ItemRepository        = (*Repository)(nil)
	_ LabelRepository       = (*Repository)(nil)
	_ CategoryRepository    = (*Repository)(nil)
	_ ConflictLogRepository = (*Repository)(nil)
	_ SyncRepository        = (*Repository)(nil)
)
