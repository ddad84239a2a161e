package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storerate/internal/models"
)

// GORMStoreRepository is a GORM implementation of StoreRepository.
type GORMStoreRepository struct {
	db *gorm.DB
}

// NewGORMStoreRepository creates a new instance of GORMStoreRepository.
func NewGORMStoreRepository(db *gorm.DB) *GORMStoreRepository {
	return &GORMStoreRepository{
		db: db,
	}
}

// withStats selects stores joined with their review aggregates. The left join
// keeps stores without reviews (review_count 0, average_rating NULL).
func (r *GORMStoreRepository) withStats(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("stores AS s").
		Select("s.*, AVG(r.rating) AS average_rating, COUNT(r.id) AS review_count").
		Joins("LEFT JOIN reviews r ON r.store_id = s.id").
		Group("s.id")
}

func (r *GORMStoreRepository) scanStats(q *gorm.DB, op string) ([]models.StoreWithStats, error) {
	stores := []models.StoreWithStats{}
	if err := q.Scan(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	for i := range stores {
		stores[i].AverageRating = roundRating(stores[i].AverageRating)
	}
	return stores, nil
}

// List returns a page of stores, newest first.
func (r *GORMStoreRepository) List(ctx context.Context, page models.PageRequest) ([]models.StoreWithStats, error) {
	q := r.withStats(ctx).
		Order("s.created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset())
	return r.scanStats(q, "list stores")
}

func (r *GORMStoreRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count stores: %w", err)
	}
	return count, nil
}

// GetByID retrieves the plain store row.
func (r *GORMStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get store by ID %s: %w", id, err)
	}
	return &store, nil
}

// GetWithStats retrieves a store with its rating aggregates.
func (r *GORMStoreRepository) GetWithStats(ctx context.Context, id string) (*models.StoreWithStats, error) {
	stores, err := r.scanStats(r.withStats(ctx).Where("s.id = ?", id), "get store "+id)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, ErrNotFound
	}
	return &stores[0], nil
}

// likeEscaper makes % and _ match literally. Patterns use ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches query case-insensitively against name, category and address.
func (r *GORMStoreRepository) Search(ctx context.Context, query string) ([]models.StoreWithStats, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	q := r.withStats(ctx).
		Where("LOWER(s.name) LIKE ? ESCAPE '!' OR LOWER(s.category) LIKE ? ESCAPE '!' OR LOWER(s.address) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern).
		Order("s.name")
	return r.scanStats(q, "search stores")
}

// ListByCategory returns the stores of one category, best rated first and
// unrated stores last.
func (r *GORMStoreRepository) ListByCategory(ctx context.Context, category string) ([]models.StoreWithStats, error) {
	q := r.withStats(ctx).
		Where("LOWER(s.category) = ?", strings.ToLower(category)).
		Order("CASE WHEN COUNT(r.id) = 0 THEN 1 ELSE 0 END").
		Order("AVG(r.rating) DESC").
		Order("s.name")
	return r.scanStats(q, "list stores by category")
}

// Create inserts a store, assigning an id when none is set.
func (r *GORMStoreRepository) Create(ctx context.Context, store *models.Store) error {
	if store.ID == "" {
		store.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

// Update writes the editable columns of store.
func (r *GORMStoreRepository) Update(ctx context.Context, store *models.Store) error {
	store.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(store).
		Select("name", "description", "address", "category", "image_url", "updated_at").
		Updates(store)
	if res.Error != nil {
		return fmt.Errorf("failed to update store: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the store and its reviews in one transaction.
func (r *GORMStoreRepository) Delete(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("store_id = ?", id).Delete(&models.Review{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete reviews of store %s: %w", id, res.Error)
		}
		removed = res.RowsAffected

		res = tx.Delete(&models.Store{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete store %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
