package repositories

import (
	"context"
	"time"

	"storerate/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	UsernameTakenByOther(ctx context.Context, username, exceptID string) (bool, error)
	UpdateUsername(ctx context.Context, id, username string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
