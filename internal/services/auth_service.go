package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"storerate/internal/apperrors"
	"storerate/internal/models"
	"storerate/internal/repositories"
)

const (
	msgUserExists         = "User already exists with this email or username"
	msgInvalidCredentials = "Invalid email or password"
	msgUsernameTaken      = "Username is already taken"
	msgUserNotFound       = "User not found"
	msgInvalidToken       = "Invalid or expired token"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// AuthService handles registration, login and profile management.
type AuthService struct {
	users      repositories.UserRepository
	reviews    repositories.ReviewRepository
	tokens     *TokenService
	validate   *validator.Validate
	bcryptCost int
	deps       Deps
	now        func() time.Time
}

// NewAuthService creates a new AuthService. Costs below bcrypt.MinCost are raised to it.
func NewAuthService(users repositories.UserRepository, reviews repositories.ReviewRepository, tokens *TokenService, bcryptCost int, deps Deps) *AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.MinCost
	}
	return &AuthService{
		users:      users,
		reviews:    reviews,
		tokens:     tokens,
		validate:   newValidator(),
		bcryptCost: bcryptCost,
		deps:       deps.withDefaults(),
		now:        time.Now,
	}
}

// Register creates an account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, validationFailed)
	}
	if !s.tokens.Configured() {
		return nil, apperrors.NewConfiguration("", ErrMissingSecret)
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	if exists {
		return nil, apperrors.NewConflict(msgUserExists, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternal("", fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.NewConflict(msgUserExists, err)
		}
		return nil, apperrors.NewInternal("", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.deps.Log.WithField("user_id", user.ID).Info("user registered")
	s.deps.publish(ctx, EventUserRegistered, user.Public())
	return result, nil
}

// Login checks credentials and returns a fresh token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, validationFailed)
	}
	if !s.tokens.Configured() {
		return nil, apperrors.NewConfiguration("", ErrMissingSecret)
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NewAuthentication(msgInvalidCredentials, nil)
		}
		return nil, apperrors.NewInternal("", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperrors.NewAuthentication(msgInvalidCredentials, nil)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.deps.Log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	return result, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *AuthService) VerifyToken(token string) (*Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrMissingSecret) {
			return nil, apperrors.NewConfiguration("", err)
		}
		return nil, apperrors.NewAuthentication(msgInvalidToken, err)
	}
	return claims, nil
}

// GetProfile returns the public projection of a user.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NewNotFound(msgUserNotFound)
		}
		return nil, apperrors.NewInternal("", err)
	}
	public := user.Public()
	return &public, nil
}

// UpdateProfile changes the username of userID.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.PublicUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, validationFailed)
	}

	taken, err := s.users.UsernameTakenByOther(ctx, in.Username, userID)
	if err != nil {
		return nil, apperrors.NewInternal("", err)
	}
	if taken {
		return nil, apperrors.NewConflict(msgUsernameTaken, nil)
	}

	if err := s.users.UpdateUsername(ctx, userID, in.Username); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, apperrors.NewConflict(msgUsernameTaken, err)
		case errors.Is(err, repositories.ErrNotFound):
			return nil, apperrors.NewNotFound(msgUserNotFound)
		default:
			return nil, apperrors.NewInternal("", err)
		}
	}
	s.invalidateReviewedStores(ctx, userID)
	return s.GetProfile(ctx, userID)
}

// invalidateReviewedStores drops cached store details that embed the
// user's old username.
func (s *AuthService) invalidateReviewedStores(ctx context.Context, userID string) {
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		s.deps.Log.WithError(err).WithField("user_id", userID).Warn("failed to list reviews for cache invalidation")
		return
	}
	seen := make(map[string]struct{}, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.StoreID]; ok {
			continue
		}
		seen[r.StoreID] = struct{}{}
		s.deps.invalidate(ctx, r.StoreID)
	}
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		if errors.Is(err, ErrMissingSecret) {
			return nil, apperrors.NewConfiguration("", err)
		}
		return nil, apperrors.NewInternal("", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}
