package storage

import (
	"context"
	"errors"

	"restaurant-scraper/models"
)

// ErrNotFound is returned when a document id matches nothing in the store.
var ErrNotFound = errors.New("restaurant not found")

// DocumentStore is the persistence surface the service layer writes
// through. Writes carry explicit field maps so each write touches exactly
// the fields it names; SetMerge never erases fields absent from the map.
type DocumentStore interface {
	// Add inserts a new document and returns the store-allocated id.
	Add(ctx context.Context, fields map[string]any) (string, error)
	// SetMerge merge-writes fields under id, creating the document if it
	// does not exist.
	SetMerge(ctx context.Context, id string, fields map[string]any) error
	// UpdateFields applies a partial update to an existing document.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Get(ctx context.Context, id string) (*models.Restaurant, error)
	ListAll(ctx context.Context) ([]*models.Restaurant, error)
	Close(ctx context.Context) error
}
