package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"storerate/internal/models"
	"storerate/internal/repositories"
)

type demoReview struct {
	author  string
	rating  int
	comment string
}

type demoStore struct {
	name     string
	category string
	address  string
	reviews  []demoReview
}

var demoStores = []demoStore{
	{name: "Tech World", category: "Electronics", address: "New York", reviews: []demoReview{
		{"john_d", 5, "Great service!"},
		{"jane_s", 4, "Good products"},
	}},
	{name: "Fashion Hub", category: "Clothing", address: "Los Angeles", reviews: []demoReview{
		{"mike_r", 4, "Nice collection"},
	}},
	{name: "Book Corner", category: "Books", address: "Chicago", reviews: []demoReview{
		{"sarah_l", 5, "Amazing bookstore!"},
	}},
	{name: "Coffee Beans", category: "Food & Beverage", address: "Seattle"},
}

var demoAuthors = []string{"john_d", "jane_s", "mike_r", "sarah_l"}

// Run inserts the demo stores, authors and reviews when the database has no
// stores yet. It reports whether anything was inserted.
func Run(ctx context.Context, users repositories.UserRepository, stores repositories.StoreRepository, reviews repositories.ReviewRepository, log logrus.FieldLogger) (bool, error) {
	count, err := stores.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		log.Debug("demo data skipped, stores already present")
		return false, nil
	}

	authors := make(map[string]string, len(demoAuthors))
	for _, name := range demoAuthors {
		id, err := demoUser(ctx, users, name)
		if err != nil {
			return false, err
		}
		authors[name] = id
	}

	for _, ds := range demoStores {
		store := &models.Store{
			Name:      ds.name,
			Category:  ds.category,
			Address:   ds.address,
			CreatedBy: authors[demoAuthors[0]],
		}
		if err := stores.Create(ctx, store); err != nil {
			return false, fmt.Errorf("failed to seed store %s: %w", ds.name, err)
		}
		for _, dr := range ds.reviews {
			review := &models.Review{
				StoreID: store.ID,
				UserID:  authors[dr.author],
				Rating:  dr.rating,
				Comment: dr.comment,
			}
			if err := reviews.Create(ctx, review); err != nil {
				return false, fmt.Errorf("failed to seed review of %s: %w", ds.name, err)
			}
		}
	}

	log.WithField("stores", len(demoStores)).Info("demo data seeded")
	return true, nil
}

// demoUser returns the id of the named demo account, creating it with an
// unguessable password when missing.
func demoUser(ctx context.Context, users repositories.UserRepository, username string) (string, error) {
	existing, err := users.GetByUsername(ctx, username)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash demo password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Email:        username + "@demo.storerate.local",
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, user); err != nil {
		return "", fmt.Errorf("failed to seed user %s: %w", username, err)
	}
	return user.ID, nil
}
