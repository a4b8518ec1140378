package store

import (
	"context"

	"github.com/dondetu/dondetu/pkg/models"
)

// ReadOnlyStore wraps a Store and prevents write operations when in read-only mode.
//
// The dashboard is frozen this way during bulk imports and backend migrations: the
// public directory keeps serving reads while every Create, Update and Delete fails
// with [ErrReadOnly]. Migrate is not guarded: the freeze covers content, not schema.
//
// The read-only state is determined dynamically by the isReadOnly function, so the
// application can toggle it at runtime without recreating the store.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

// Write operations - check read-only mode first

func (r *ReadOnlyStore) CreatePlace(ctx context.Context, place *models.Place) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreatePlace(ctx, place)
}

func (r *ReadOnlyStore) UpdatePlace(ctx context.Context, place *models.Place) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdatePlace(ctx, place)
}

func (r *ReadOnlyStore) DeletePlace(ctx context.Context, id models.PlaceID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeletePlace(ctx, id)
}

func (r *ReadOnlyStore) CreateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateSocialNetwork(ctx, sn)
}

func (r *ReadOnlyStore) UpdateSocialNetwork(ctx context.Context, sn *models.SocialNetwork) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateSocialNetwork(ctx, sn)
}

func (r *ReadOnlyStore) DeleteSocialNetwork(ctx context.Context, id models.SocialNetworkID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteSocialNetwork(ctx, id)
}

func (r *ReadOnlyStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateEvent(ctx, event)
}

func (r *ReadOnlyStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateEvent(ctx, event)
}

func (r *ReadOnlyStore) DeleteEvent(ctx context.Context, id models.EventID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteEvent(ctx, id)
}
