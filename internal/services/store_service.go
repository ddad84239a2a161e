package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"storerate/internal/apperrors"
	"storerate/internal/models"
	"storerate/internal/repositories"
)

const (
	msgStoreNotFound = "Store not found"

	// DefaultStorePageLimit is the store list page size when none is given.
	DefaultStorePageLimit = 20
	// RecentReviewsLimit is the number of reviews embedded in a store detail.
	RecentReviewsLimit = 10
)

type CreateStoreInput struct {
	Name        string  `json:"name" form:"name" validate:"required,min=2,max=100"`
	Description string  `json:"description" form:"description" validate:"max=2000"`
	Address     string  `json:"address" form:"address" validate:"required,max=255"`
	Category    string  `json:"category" form:"category" validate:"required,max=100"`
	ImageURL    *string `json:"-" form:"-"`
}

// UpdateStoreInput holds a partial update. Nil fields keep their value.
type UpdateStoreInput struct {
	Name        *string `json:"name" form:"name" validate:"omitnil,min=2,max=100"`
	Description *string `json:"description" form:"description" validate:"omitnil,max=2000"`
	Address     *string `json:"address" form:"address" validate:"omitnil,min=1,max=255"`
	Category    *string `json:"category" form:"category" validate:"omitnil,min=1,max=100"`
	ImageURL    *string `json:"-" form:"-"`
}

// StorePage is one page of the store list.
type StorePage struct {
	Stores     []models.StoreWithStats
	Pagination models.StorePagination
}

// StoreService handles store browsing and management.
type StoreService struct {
	stores   repositories.StoreRepository
	reviews  repositories.ReviewRepository
	validate *validator.Validate
	deps     Deps
}

func NewStoreService(stores repositories.StoreRepository, reviews repositories.ReviewRepository, deps Deps) *StoreService {
	return &StoreService{
		stores:   stores,
		reviews:  reviews,
		validate: newValidator(),
		deps:     deps.withDefaults(),
	}
}

// List returns a page of stores, newest first, with rating aggregates.
func (s *StoreService) List(ctx context.Context, page, limit int) (*StorePage, error) {
	req := models.NewPageRequest(page, limit, DefaultStorePageLimit)

	stores, err := s.stores.List(ctx, req)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	total, err := s.stores.Count(ctx)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}

	return &StorePage{
		Stores: orEmpty(stores),
		Pagination: models.StorePagination{
			Pagination:  models.NewPagination(req, total),
			TotalStores: total,
		},
	}, nil
}

// Get returns a store with its aggregates and most recent reviews.
func (s *StoreService) Get(ctx context.Context, id string) (*models.StoreDetail, error) {
	if detail, ok, err := s.deps.Cache.GetStoreDetail(ctx, id); err != nil {
		s.deps.Log.WithError(err).WithField("store_id", id).Warn("store cache read failed")
	} else if ok {
		return detail, nil
	}

	store, err := s.stores.GetWithStats(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	recent, err := s.reviews.ListByStore(ctx, id, models.PageRequest{Page: 1, Limit: RecentReviewsLimit}, models.SortNewest)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	detail := &models.StoreDetail{Store: *store, RecentReviews: orEmpty(recent)}
	if err := s.deps.Cache.SetStoreDetail(ctx, detail); err != nil {
		s.deps.Log.WithError(err).WithField("store_id", id).Warn("store cache write failed")
	}
	return detail, nil
}

// Search matches query against store name, category and address.
func (s *StoreService) Search(ctx context.Context, query string) ([]models.StoreWithStats, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidation("Search query is required", map[string]string{"q": "Search query is required"})
	}
	stores, err := s.stores.Search(ctx, query)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	return orEmpty(stores), nil
}

// ListByCategory returns the stores of one category, best rated first.
func (s *StoreService) ListByCategory(ctx context.Context, category string) ([]models.StoreWithStats, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.NewValidation("Category is required", map[string]string{"category": "Category is required"})
	}
	stores, err := s.stores.ListByCategory(ctx, category)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	return orEmpty(stores), nil
}

// Create adds a store owned by createdBy.
func (s *StoreService) Create(ctx context.Context, in CreateStoreInput, createdBy string) (*models.StoreWithStats, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, validationFailed)
	}

	store := &models.Store{
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		CreatedBy:   createdBy,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, apperrors.NewInternal("", err)
	}

	s.deps.Log.WithField("store_id", store.ID).Info("store created")
	s.deps.publish(ctx, EventStoreCreated, store)
	return &models.StoreWithStats{Store: *store}, nil
}

// Update applies a partial update. Any authenticated user may update a store.
func (s *StoreService) Update(ctx context.Context, id string, in UpdateStoreInput) (*models.StoreWithStats, error) {
	trim(in.Name, in.Description, in.Address, in.Category)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, validationFailed)
	}

	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	previousImage := store.ImageURL
	if in.Name != nil {
		store.Name = *in.Name
	}
	if in.Description != nil {
		store.Description = *in.Description
	}
	if in.Address != nil {
		store.Address = *in.Address
	}
	if in.Category != nil {
		store.Category = *in.Category
	}
	if in.ImageURL != nil {
		store.ImageURL = in.ImageURL
	}

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, storeError(err)
	}
	if in.ImageURL != nil && previousImage != nil && *previousImage != *in.ImageURL {
		s.deps.removeImage(previousImage)
	}
	s.deps.invalidate(ctx, id)
	s.deps.publish(ctx, EventStoreUpdated, store)

	updated, err := s.stores.GetWithStats(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

// Delete removes a store, its reviews and its image. It returns the number
// of reviews removed.
func (s *StoreService) Delete(ctx context.Context, id string) (int64, error) {
	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return 0, storeError(err)
	}
	removed, err := s.stores.Delete(ctx, id)
	if err != nil {
		return 0, storeError(err)
	}
	s.deps.removeImage(store.ImageURL)

	s.deps.invalidate(ctx, id)
	s.deps.Log.WithField("store_id", id).WithField("reviews_removed", removed).Info("store deleted")
	s.deps.publish(ctx, EventStoreDeleted, map[string]interface{}{
		"store_id":        id,
		"reviews_removed": removed,
	})
	return removed, nil
}

func storeError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NewNotFound(msgStoreNotFound)
	}
	return apperrors.NewInternal("", err)
}

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
