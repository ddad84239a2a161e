package models

import "time"

// Store is a business that users can review.
type Store struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Address     string    `json:"address" gorm:"type:varchar(255);not null"`
	Category    string    `json:"category" gorm:"type:varchar(100);not null;index"`
	ImageURL    *string   `json:"image_url" gorm:"type:varchar(255)"`
	CreatedBy   string    `json:"created_by" gorm:"type:varchar(36);index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StoreWithStats is a Store plus the rating aggregates computed at read time.
// AverageRating is nil when the store has no reviews.
type StoreWithStats struct {
	Store         `gorm:"embedded"`
	AverageRating *float64 `json:"average_rating" gorm:"column:average_rating"`
	ReviewCount   int64    `json:"review_count" gorm:"column:review_count"`
}

// StoreDetail is the payload of the single store endpoint.
type StoreDetail struct {
	Store         StoreWithStats `json:"store"`
	RecentReviews []ReviewDetail `json:"recent_reviews"`
}
