package repositories

import (
	"context"

	"storerate/internal/models"
)

// StoreRepository defines the interface for store data access.
type StoreRepository interface {
	List(ctx context.Context, page models.PageRequest) ([]models.StoreWithStats, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*models.Store, error)
	GetWithStats(ctx context.Context, id string) (*models.StoreWithStats, error)
	Search(ctx context.Context, query string) ([]models.StoreWithStats, error)
	ListByCategory(ctx context.Context, category string) ([]models.StoreWithStats, error)
	Create(ctx context.Context, store *models.Store) error
	Update(ctx context.Context, store *models.Store) error
	// Delete removes the store and its reviews, returning the number of reviews removed.
	Delete(ctx context.Context, id string) (int64, error)
}
