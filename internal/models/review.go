package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of one store. (StoreID, UserID) is unique.
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StoreID   string    `json:"store_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_reviews_store_user"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_reviews_store_user;index"`
	Rating    int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewDetail is a Review joined with author and store display fields.
type ReviewDetail struct {
	Review        `gorm:"embedded"`
	Username      string `json:"username,omitempty" gorm:"column:username"`
	StoreName     string `json:"store_name,omitempty" gorm:"column:store_name"`
	StoreCategory string `json:"store_category,omitempty" gorm:"column:store_category"`
}

// RatingStats is the per-store rating histogram.
type RatingStats struct {
	AverageRating *float64 `json:"average_rating" gorm:"column:average_rating"`
	TotalReviews  int64    `json:"total_reviews" gorm:"column:total_reviews"`
	FiveStar      int64    `json:"five_star" gorm:"column:five_star"`
	FourStar      int64    `json:"four_star" gorm:"column:four_star"`
	ThreeStar     int64    `json:"three_star" gorm:"column:three_star"`
	TwoStar       int64    `json:"two_star" gorm:"column:two_star"`
	OneStar       int64    `json:"one_star" gorm:"column:one_star"`
}

// ValidRating reports whether r is within the allowed star range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// ReviewSort selects the ordering of a store's review list.
type ReviewSort string

const (
	SortNewest     ReviewSort = "newest"
	SortOldest     ReviewSort = "oldest"
	SortRatingHigh ReviewSort = "rating_high"
	SortRatingLow  ReviewSort = "rating_low"
)

// ParseReviewSort returns the sort named by s, defaulting to newest first.
func ParseReviewSort(s string) ReviewSort {
	switch ReviewSort(s) {
	case SortOldest, SortRatingHigh, SortRatingLow:
		return ReviewSort(s)
	default:
		return SortNewest
	}
}
