package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storerate/internal/models"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

func (r *GORMReviewRepository) details(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("reviews AS r").
		Select("r.*, u.username AS username, s.name AS store_name, s.category AS store_category").
		Joins("JOIN users u ON u.id = r.user_id").
		Joins("JOIN stores s ON s.id = r.store_id")
}

func scanDetails(q *gorm.DB, op string) ([]models.ReviewDetail, error) {
	reviews := []models.ReviewDetail{}
	if err := q.Scan(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return reviews, nil
}

// Create inserts a review, assigning an id when none is set.
func (r *GORMReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create review: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *GORMReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review by ID %s: %w", id, err)
	}
	return &review, nil
}

// GetDetail retrieves a review with author and store display fields.
func (r *GORMReviewRepository) GetDetail(ctx context.Context, id string) (*models.ReviewDetail, error) {
	reviews, err := scanDetails(r.details(ctx).Where("r.id = ?", id).Limit(1), "get review "+id)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, ErrNotFound
	}
	return &reviews[0], nil
}

func (r *GORMReviewRepository) FindByStoreAndUser(ctx context.Context, storeID, userID string) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find review of store %s by user %s: %w", storeID, userID, err)
	}
	return &review, nil
}

// ListAll returns a page of all reviews, newest first.
func (r *GORMReviewRepository) ListAll(ctx context.Context, page models.PageRequest) ([]models.ReviewDetail, error) {
	q := r.details(ctx).
		Order("r.created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset())
	return scanDetails(q, "list reviews")
}

func (r *GORMReviewRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// ListByStore returns a page of one store's reviews in the requested order.
func (r *GORMReviewRepository) ListByStore(ctx context.Context, storeID string, page models.PageRequest, sort models.ReviewSort) ([]models.ReviewDetail, error) {
	q := r.details(ctx).Where("r.store_id = ?", storeID)
	switch sort {
	case models.SortOldest:
		q = q.Order("r.created_at ASC")
	case models.SortRatingHigh:
		q = q.Order("r.rating DESC").Order("r.created_at DESC")
	case models.SortRatingLow:
		q = q.Order("r.rating ASC").Order("r.created_at DESC")
	default:
		q = q.Order("r.created_at DESC")
	}
	return scanDetails(q.Limit(page.Limit).Offset(page.Offset()), "list reviews of store "+storeID)
}

func (r *GORMReviewRepository) CountByStore(ctx context.Context, storeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews of store %s: %w", storeID, err)
	}
	return count, nil
}

// RatingStats computes the average and the per-star histogram of a store.
func (r *GORMReviewRepository) RatingStats(ctx context.Context, storeID string) (*models.RatingStats, error) {
	var stats models.RatingStats
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select(`AVG(rating) AS average_rating,
			COUNT(*) AS total_reviews,
			COALESCE(SUM(CASE WHEN rating = 5 THEN 1 ELSE 0 END), 0) AS five_star,
			COALESCE(SUM(CASE WHEN rating = 4 THEN 1 ELSE 0 END), 0) AS four_star,
			COALESCE(SUM(CASE WHEN rating = 3 THEN 1 ELSE 0 END), 0) AS three_star,
			COALESCE(SUM(CASE WHEN rating = 2 THEN 1 ELSE 0 END), 0) AS two_star,
			COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0) AS one_star`).
		Where("store_id = ?", storeID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating stats of store %s: %w", storeID, err)
	}
	stats.AverageRating = roundRating(stats.AverageRating)
	return &stats, nil
}

// ListByUser returns every review written by userID, newest first.
func (r *GORMReviewRepository) ListByUser(ctx context.Context, userID string) ([]models.ReviewDetail, error) {
	q := r.details(ctx).
		Where("r.user_id = ?", userID).
		Order("r.created_at DESC")
	return scanDetails(q, "list reviews of user "+userID)
}

// Update writes rating and comment and refreshes updated_at.
func (r *GORMReviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(review).
		Select("rating", "comment", "updated_at").
		Updates(review)
	if res.Error != nil {
		return fmt.Errorf("failed to update review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes a review.
func (r *GORMReviewRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
