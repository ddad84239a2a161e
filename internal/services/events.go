package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"storerate/internal/models"
)

// Domain event types published after successful writes.
const (
	EventUserRegistered = "user.registered"
	EventStoreCreated   = "store.created"
	EventStoreUpdated   = "store.updated"
	EventStoreDeleted   = "store.deleted"
	EventReviewCreated  = "review.created"
	EventReviewUpdated  = "review.updated"
	EventReviewDeleted  = "review.deleted"
)

// EventPublisher delivers domain events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// StoreCache caches the store detail payload.
type StoreCache interface {
	GetStoreDetail(ctx context.Context, storeID string) (*models.StoreDetail, bool, error)
	SetStoreDetail(ctx context.Context, detail *models.StoreDetail) error
	InvalidateStore(ctx context.Context, storeID string) error
}

// ImageRemover deletes a stored image given its public URL.
type ImageRemover interface {
	Remove(url string) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }

type noopCache struct{}

func (noopCache) GetStoreDetail(context.Context, string) (*models.StoreDetail, bool, error) {
	return nil, false, nil
}
func (noopCache) SetStoreDetail(context.Context, *models.StoreDetail) error { return nil }
func (noopCache) InvalidateStore(context.Context, string) error             { return nil }

type noopImages struct{}

func (noopImages) Remove(string) error { return nil }

// Deps carries the optional collaborators shared by the services.
// Nil fields fall back to no-op implementations.
type Deps struct {
	Events EventPublisher
	Cache  StoreCache
	Images ImageRemover
	Log    logrus.FieldLogger
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.Cache == nil {
		d.Cache = noopCache{}
	}
	if d.Images == nil {
		d.Images = noopImages{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return d
}

// publish sends an event and logs a failure. Writes never fail because of it.
func (d Deps) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := d.Events.Publish(ctx, eventType, payload); err != nil {
		d.Log.WithError(err).WithField("event", eventType).Warn("failed to publish event")
	}
}

func (d Deps) invalidate(ctx context.Context, storeID string) {
	if err := d.Cache.InvalidateStore(ctx, storeID); err != nil {
		d.Log.WithError(err).WithField("store_id", storeID).Warn("failed to invalidate store cache")
	}
}

func (d Deps) removeImage(url *string) {
	if url == nil || *url == "" {
		return
	}
	if err := d.Images.Remove(*url); err != nil {
		d.Log.WithError(err).WithField("image_url", *url).Warn("failed to remove replaced image")
	}
}
