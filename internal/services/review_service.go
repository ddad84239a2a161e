package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"storerate/internal/apperrors"
	"storerate/internal/models"
	"storerate/internal/repositories"
)

const (
	msgAlreadyReviewed = "You have already reviewed this store"
	msgReviewNotFound  = "Review not found"
	msgUpdateNotOwner  = "You can only update your own reviews"
	msgDeleteNotOwner  = "You can only delete your own reviews"
	msgAccessDenied    = "Access denied"

	// DefaultReviewPageLimit is the review list page size when none is given.
	DefaultReviewPageLimit = 10
)

type CreateReviewInput struct {
	StoreID string `json:"store_id" validate:"required"`
	UserID  string `json:"-"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// UpdateReviewInput holds a partial update. Nil fields keep their value.
type UpdateReviewInput struct {
	Rating  *int    `json:"rating" validate:"omitnil,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitnil,max=1000"`
}

// StoreReviews is one page of a store's reviews with its rating histogram.
type StoreReviews struct {
	Reviews     []models.ReviewDetail
	RatingStats *models.RatingStats
	Pagination  models.ReviewPagination
}

// ReviewPage is one page of the global review list.
type ReviewPage struct {
	Reviews    []models.ReviewDetail
	Pagination models.ReviewPagination
}

// ReviewService enforces the one-review-per-store rule and author ownership.
type ReviewService struct {
	reviews  repositories.ReviewRepository
	stores   repositories.StoreRepository
	validate *validator.Validate
	deps     Deps
}

func NewReviewService(reviews repositories.ReviewRepository, stores repositories.StoreRepository, deps Deps) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		stores:   stores,
		validate: newValidator(),
		deps:     deps.withDefaults(),
	}
}

// Create posts the caller's review of a store.
func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (*models.ReviewDetail, error) {
	in.StoreID = strings.TrimSpace(in.StoreID)
	in.Comment = strings.TrimSpace(in.Comment)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	if _, err := s.stores.GetByID(ctx, in.StoreID); err != nil {
		return nil, storeError(err)
	}

	if _, err := s.reviews.FindByStoreAndUser(ctx, in.StoreID, in.UserID); err == nil {
		return nil, apperrors.NewConflict(msgAlreadyReviewed, nil)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.NewInternal("", err)
	}

	review := &models.Review{
		StoreID: in.StoreID,
		UserID:  in.UserID,
		Rating:  in.Rating,
		Comment: in.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.NewConflict(msgAlreadyReviewed, err)
		}
		return nil, apperrors.NewInternal("", err)
	}

	s.afterWrite(ctx, EventReviewCreated, review)
	return s.detail(ctx, review.ID)
}

// Update changes the rating and/or comment of the caller's own review.
func (s *ReviewService) Update(ctx context.Context, reviewID, callerID string, in UpdateReviewInput) (*models.ReviewDetail, error) {
	trim(in.Comment)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	review, err := s.owned(ctx, reviewID, callerID, msgUpdateNotOwner)
	if err != nil {
		return nil, err
	}
	if in.Rating != nil {
		review.Rating = *in.Rating
	}
	if in.Comment != nil {
		review.Comment = *in.Comment
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, reviewError(err)
	}

	s.afterWrite(ctx, EventReviewUpdated, review)
	return s.detail(ctx, review.ID)
}

// Delete permanently removes the caller's own review.
func (s *ReviewService) Delete(ctx context.Context, reviewID, callerID string) error {
	review, err := s.owned(ctx, reviewID, callerID, msgDeleteNotOwner)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return reviewError(err)
	}

	s.afterWrite(ctx, EventReviewDeleted, review)
	return nil
}

// Get returns one review with author and store names.
func (s *ReviewService) Get(ctx context.Context, reviewID string) (*models.ReviewDetail, error) {
	return s.detail(ctx, reviewID)
}

// ListByStore returns a page of a store's reviews and its rating histogram.
func (s *ReviewService) ListByStore(ctx context.Context, storeID string, page, limit int, sort string) (*StoreReviews, error) {
	if _, err := s.stores.GetByID(ctx, storeID); err != nil {
		return nil, storeError(err)
	}

	req := models.NewPageRequest(page, limit, DefaultReviewPageLimit)
	reviews, err := s.reviews.ListByStore(ctx, storeID, req, models.ParseReviewSort(sort))
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	total, err := s.reviews.CountByStore(ctx, storeID)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	stats, err := s.reviews.RatingStats(ctx, storeID)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}

	return &StoreReviews{
		Reviews:     orEmpty(reviews),
		RatingStats: stats,
		Pagination: models.ReviewPagination{
			Pagination:   models.NewPagination(req, total),
			TotalReviews: total,
		},
	}, nil
}

// ListAll returns a page of every review, newest first.
func (s *ReviewService) ListAll(ctx context.Context, page, limit int) (*ReviewPage, error) {
	req := models.NewPageRequest(page, limit, DefaultReviewPageLimit)
	reviews, err := s.reviews.ListAll(ctx, req)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	total, err := s.reviews.CountAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	return &ReviewPage{
		Reviews: orEmpty(reviews),
		Pagination: models.ReviewPagination{
			Pagination:   models.NewPagination(req, total),
			TotalReviews: total,
		},
	}, nil
}

// ListByUser returns every review written by userID. Only that user may list them.
func (s *ReviewService) ListByUser(ctx context.Context, userID, callerID string) ([]models.ReviewDetail, error) {
	if userID != callerID {
		return nil, apperrors.NewForbidden(msgAccessDenied)
	}
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	return orEmpty(reviews), nil
}

func (s *ReviewService) owned(ctx context.Context, reviewID, callerID, denied string) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, reviewError(err)
	}
	if review.UserID != callerID {
		return nil, apperrors.NewForbidden(denied)
	}
	return review, nil
}

func (s *ReviewService) detail(ctx context.Context, reviewID string) (*models.ReviewDetail, error) {
	detail, err := s.reviews.GetDetail(ctx, reviewID)
	if err != nil {
		return nil, reviewError(err)
	}
	return detail, nil
}

func (s *ReviewService) afterWrite(ctx context.Context, eventType string, review *models.Review) {
	s.deps.invalidate(ctx, review.StoreID)
	s.deps.Log.WithFields(logrus.Fields{
		"review_id": review.ID,
		"store_id":  review.StoreID,
		"user_id":   review.UserID,
	}).Info(eventType)
	s.deps.publish(ctx, eventType, review)
}

func reviewError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NewNotFound(msgReviewNotFound)
	}
	return apperrors.NewInternal("", err)
}

// orEmpty makes list responses serialize as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
