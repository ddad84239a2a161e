package repositories

import (
	"context"

	"storerate/internal/models"
)

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	GetDetail(ctx context.Context, id string) (*models.ReviewDetail, error)
	FindByStoreAndUser(ctx context.Context, storeID, userID string) (*models.Review, error)
	ListAll(ctx context.Context, page models.PageRequest) ([]models.ReviewDetail, error)
	CountAll(ctx context.Context) (int64, error)
	ListByStore(ctx context.Context, storeID string, page models.PageRequest, sort models.ReviewSort) ([]models.ReviewDetail, error)
	CountByStore(ctx context.Context, storeID string) (int64, error)
	RatingStats(ctx context.Context, storeID string) (*models.RatingStats, error)
	ListByUser(ctx context.Context, userID string) ([]models.ReviewDetail, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
}
