// Package catalog defines the price-catalog storage boundary: the narrow
// find-or-create/insert/list contract the pipeline and the repairer consume.
// The store's own query internals stay behind this interface.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("catalog: not found")

// Item is a catalog entry. (Name, Unit) is unique by convention, not by
// schema: duplicates can arise and are repaired retroactively by grouping.
type Item struct {
	ID        uuid.UUID
	Name      string
	Unit      string
	ItemURL   string
	CreatedAt time.Time
}

// Market is a retail source, unique on name.
type Market struct {
	ID        uuid.UUID
	Name      string
	URL       string
	CreatedAt time.Time
}

// PriceObservation is one append-only price point. Observations are never
// updated in place; re-running ingestion creates new rows.
type PriceObservation struct {
	ItemID      uuid.UUID
	MarketID    uuid.UUID
	Price       float64
	DateScraped time.Time
}

// DuplicateGroup describes a (name, unit) pair held by more than one item.
type DuplicateGroup struct {
	Name  string
	Unit  string
	Count int
}

// Stats summarizes catalog row counts.
type Stats struct {
	Items   int64
	Markets int64
	Prices  int64
}

// Store is the catalog storage boundary. Implementations must be safe for
// concurrent use.
type Store interface {
	// FindOrCreateItem returns the id of the item with (name, unit),
	// creating it when absent. created reports whether an insert happened.
	FindOrCreateItem(ctx context.Context, name, unit, itemURL string) (id uuid.UUID, created bool, err error)

	// FindOrCreateMarket returns the id of the named market, creating it
	// when absent.
	FindOrCreateMarket(ctx context.Context, name, url string) (id uuid.UUID, created bool, err error)

	// InsertPrice appends one price observation.
	InsertPrice(ctx context.Context, obs PriceObservation) error

	// FindDuplicateGroups lists (name, unit) pairs with more than one item.
	FindDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error)

	// ListItemIDs returns the ids for (name, unit) ordered by creation time,
	// earliest first.
	ListItemIDs(ctx context.Context, name, unit string) ([]uuid.UUID, error)

	// MergeGroup re-points all price observations from the given items onto
	// the survivor and deletes them, atomically per group: if the re-point
	// fails, nothing is deleted.
	MergeGroup(ctx context.Context, survivor uuid.UUID, duplicates []uuid.UUID) error

	// ListItemsWithoutPrices returns ids of items with zero observations.
	ListItemsWithoutPrices(ctx context.Context) ([]uuid.UUID, error)

	// DeleteItems removes the given items.
	DeleteItems(ctx context.Context, ids []uuid.UUID) error

	// Stats returns catalog row counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the store's resources.
	Close()
}
