package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"storerate/internal/models"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UsernameTakenByOther(ctx context.Context, username, exceptID string) (bool, error) {
	args := m.Called(ctx, username, exceptID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateUsername(ctx context.Context, id, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockStoreRepository is a mock implementation of repositories.StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) List(ctx context.Context, page models.PageRequest) ([]models.StoreWithStats, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]models.StoreWithStats), args.Error(1)
}

func (m *MockStoreRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreRepository) GetWithStats(ctx context.Context, id string) (*models.StoreWithStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreWithStats), args.Error(1)
}

func (m *MockStoreRepository) Search(ctx context.Context, query string) ([]models.StoreWithStats, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.StoreWithStats), args.Error(1)
}

func (m *MockStoreRepository) ListByCategory(ctx context.Context, category string) ([]models.StoreWithStats, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]models.StoreWithStats), args.Error(1)
}

func (m *MockStoreRepository) Create(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) Update(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockReviewRepository is a mock implementation of repositories.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) GetDetail(ctx context.Context, id string) (*models.ReviewDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReviewDetail), args.Error(1)
}

func (m *MockReviewRepository) FindByStoreAndUser(ctx context.Context, storeID, userID string) (*models.Review, error) {
	args := m.Called(ctx, storeID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) ListAll(ctx context.Context, page models.PageRequest) ([]models.ReviewDetail, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]models.ReviewDetail), args.Error(1)
}

func (m *MockReviewRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) ListByStore(ctx context.Context, storeID string, page models.PageRequest, sort models.ReviewSort) ([]models.ReviewDetail, error) {
	args := m.Called(ctx, storeID, page, sort)
	return args.Get(0).([]models.ReviewDetail), args.Error(1)
}

func (m *MockReviewRepository) CountByStore(ctx context.Context, storeID string) (int64, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) RatingStats(ctx context.Context, storeID string) (*models.RatingStats, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatingStats), args.Error(1)
}

func (m *MockReviewRepository) ListByUser(ctx context.Context, userID string) ([]models.ReviewDetail, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.ReviewDetail), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

// MockCache is a mock implementation of services.StoreCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetStoreDetail(ctx context.Context, storeID string) (*models.StoreDetail, bool, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.StoreDetail), args.Bool(1), args.Error(2)
}

func (m *MockCache) SetStoreDetail(ctx context.Context, detail *models.StoreDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockCache) InvalidateStore(ctx context.Context, storeID string) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

type MockImages struct {
	mock.Mock
}

func (m *MockImages) Remove(url string) error {
	args := m.Called(url)
	return args.Error(0)
}
